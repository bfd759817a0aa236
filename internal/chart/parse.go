package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/chartscrape/internal/records"
)

// Tooltip labels naming the series a bar belongs to.
const (
	casesLabel  = "Confirmed Cases"
	deathsLabel = "Deaths"
)

// ErrNotARecord indicates tooltip text that carries no known series label.
var ErrNotARecord = errors.New("tooltip is not a case or death count")

// ParseTooltip parses "<date>\n<count> <label>" into a record without a
// country. Counts may use thousands separators.
func ParseTooltip(text string) (records.Record, error) {
	var kind records.Kind
	switch {
	case strings.Contains(text, casesLabel):
		kind = records.Cases
	case strings.Contains(text, deathsLabel):
		kind = records.Deaths
	default:
		return records.Record{}, fmt.Errorf("%w: %q", ErrNotARecord, text)
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return records.Record{}, fmt.Errorf("malformed tooltip %q: expected date and count lines", text)
	}

	date := strings.TrimSpace(lines[0])
	fields := strings.Fields(lines[1])
	if len(fields) == 0 {
		return records.Record{}, fmt.Errorf("malformed tooltip %q: missing count", text)
	}
	count, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return records.Record{}, fmt.Errorf("malformed tooltip %q: count: %w", text, err)
	}

	return records.Record{Date: date, Count: count, Kind: kind}, nil
}
