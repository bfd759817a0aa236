package records

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DuplicatePolicy decides what happens when a scraped date is already on
// disk and reset mode is off.
type DuplicatePolicy string

const (
	// StopList ends the current bar-list at the first duplicate.
	StopList DuplicatePolicy = "stop-list"
	// SkipDuplicate drops the duplicate and keeps reading the bar-list.
	SkipDuplicate DuplicatePolicy = "skip"
)

// ParseDuplicatePolicy validates a policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case StopList, SkipDuplicate:
		return p, nil
	case "":
		return StopList, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy: %q (use %q or %q)", s, StopList, SkipDuplicate)
	}
}

// Outcome is the result of appending one record.
type Outcome int

const (
	// Written means the record was new and is now on disk.
	Written Outcome = iota
	// Rewritten means the record was already on disk and written again
	// because reset mode is on.
	Rewritten
	// Skipped means the duplicate was dropped and reading continues.
	Skipped
	// Stop means the duplicate was dropped and the bar-list must end.
	Stop
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case Rewritten:
		return "rewritten"
	case Skipped:
		return "skipped"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Options configures a Store.
type Options struct {
	Reset       bool            // Write records even when their date is already on disk
	OnDuplicate DuplicatePolicy // Applies when Reset is off
}

// Store appends records to one country file.
type Store struct {
	path    string
	country string
	opts    Options
	seen    *Seen
	file    *os.File
	w       *bufio.Writer
	written int
}

// Open loads the dates already in path and opens it for appending,
// creating it when absent.
func Open(path, country string, opts Options) (*Store, error) {
	if opts.OnDuplicate == "" {
		opts.OnDuplicate = StopList
	}

	seen, err := Load(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //#nosec G302 G304 -- data file for the user
	if err != nil {
		return nil, fmt.Errorf("opening %s for append: %w", path, err)
	}

	return &Store{
		path:    path,
		country: country,
		opts:    opts,
		seen:    seen,
		file:    f,
		w:       bufio.NewWriter(f),
	}, nil
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// Seen exposes the dates known to the store.
func (s *Store) Seen() *Seen {
	return s.seen
}

// Written returns the number of lines written since Open.
func (s *Store) Written() int {
	return s.written
}

// WriteNoCases writes the zero-count placeholder of each kind that does not
// have one yet, and returns how many rows were written.
func (s *Store) WriteNoCases() (int, error) {
	n := 0
	for _, kind := range []Kind{Cases, Deaths} {
		if s.seen.Has(kind, "") {
			continue
		}
		if err := s.write(Record{Country: s.country, Kind: kind}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Append writes rec unless its date is already recorded for its kind.
func (s *Store) Append(rec Record) (Outcome, error) {
	if !s.seen.Has(rec.Kind, rec.Date) {
		if err := s.write(rec); err != nil {
			return Written, err
		}
		return Written, nil
	}

	if s.opts.Reset {
		if err := s.write(rec); err != nil {
			return Rewritten, err
		}
		return Rewritten, nil
	}

	if s.opts.OnDuplicate == SkipDuplicate {
		return Skipped, nil
	}
	return Stop, nil
}

func (s *Store) write(rec Record) error {
	if _, err := s.w.WriteString(rec.Line() + "\n"); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	s.seen.Add(rec.Kind, rec.Date)
	s.written++
	return nil
}

// Flush pushes buffered lines to the file.
func (s *Store) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", s.path, err)
	}
	return nil
}

// Close flushes, syncs and closes the file.
func (s *Store) Close() error {
	flushErr := s.Flush()
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	for _, err := range []error{flushErr, syncErr, closeErr} {
		if err != nil {
			return err
		}
	}
	return nil
}
