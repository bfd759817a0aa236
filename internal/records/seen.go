package records

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Seen holds the dates already recorded per kind.
type Seen struct {
	cases  map[string]struct{}
	deaths map[string]struct{}
}

// NewSeen returns empty sets.
func NewSeen() *Seen {
	return &Seen{
		cases:  make(map[string]struct{}),
		deaths: make(map[string]struct{}),
	}
}

func (s *Seen) set(kind Kind) map[string]struct{} {
	if kind == Deaths {
		return s.deaths
	}
	return s.cases
}

// Has reports whether date is recorded for kind.
func (s *Seen) Has(kind Kind, date string) bool {
	_, ok := s.set(kind)[date]
	return ok
}

// Add marks date as recorded for kind.
func (s *Seen) Add(kind Kind, date string) {
	s.set(kind)[date] = struct{}{}
}

// Len returns the number of dates recorded for kind.
func (s *Seen) Len(kind Kind) int {
	return len(s.set(kind))
}

// Load reads the dates already present in a country file. A missing file
// yields empty sets.
func Load(path string) (*Seen, error) {
	f, err := os.Open(path) //#nosec G304 -- path is the user's output file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSeen(), nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	seen, err := ReadSeen(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return seen, nil
}

// ReadSeen classifies each line by the series name it contains and records
// the date field, the text before the first ';'. Lines naming neither
// series are ignored.
func ReadSeen(r io.Reader) (*Seen, error) {
	seen := NewSeen()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		date, _, _ := strings.Cut(line, ";")
		switch {
		case strings.Contains(line, string(Cases)):
			seen.Add(Cases, date)
		case strings.Contains(line, string(Deaths)):
			seen.Add(Deaths, date)
		}
	}
	return seen, scanner.Err()
}

// ReadAll parses every record of a country file. The country is taken from
// the file name.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path) //#nosec G304 -- path is user supplied
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	country := CountryFromFile(path)
	var out []Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		rec.Country = country
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
