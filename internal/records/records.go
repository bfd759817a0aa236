// Package records persists scraped chart values in per-country,
// semicolon-delimited files and suppresses rows already on disk.
package records

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the series a record belongs to.
type Kind string

const (
	Cases  Kind = "cases"
	Deaths Kind = "deaths"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Cases, Deaths:
		return k, nil
	default:
		return "", fmt.Errorf("unknown record kind: %q", s)
	}
}

// Record is one chart value for a country.
type Record struct {
	Country string `json:"country" yaml:"country"`
	Date    string `json:"date" yaml:"date"` // Empty for the no-cases sentinel
	Count   int    `json:"count" yaml:"count"`
	Kind    Kind   `json:"kind" yaml:"kind"`
}

// Line formats the record as a file line without the trailing newline.
// The country is implied by the file name and not written.
func (r Record) Line() string {
	return r.Date + ";" + strconv.Itoa(r.Count) + ";" + string(r.Kind)
}

// IsSentinel reports whether r is a no-cases placeholder row.
func (r Record) IsSentinel() bool {
	return r.Date == "" && r.Count == 0
}

// ParseLine parses a file line back into a record.
func ParseLine(line string) (Record, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), ";")
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("malformed record line %q: expected 3 fields, got %d", line, len(parts))
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Record{}, fmt.Errorf("malformed record line %q: count: %w", line, err)
	}
	kind, err := ParseKind(strings.TrimSpace(parts[2]))
	if err != nil {
		return Record{}, fmt.Errorf("malformed record line %q: %w", line, err)
	}
	return Record{Date: parts[0], Count: count, Kind: kind}, nil
}

// CountryFromFile derives a country name from its file name,
// "united_states.csv" -> "united_states".
func CountryFromFile(name string) string {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".csv")
}
