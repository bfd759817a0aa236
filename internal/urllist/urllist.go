// Package urllist loads the ordered list of chart pages scraped in
// recursive mode.
package urllist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ErrInvalidURL is returned for entries that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid url")

// Entry is one line of the list. Err is set when the line is not a page
// URL; such entries stay in the queue so results keep their line positions.
type Entry struct {
	URL  string
	Line int
	Err  error
}

// Queue holds the pages of a URL list in file order, repeats included.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	invalid int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Load reads a URL list file.
func Load(path string) (*Queue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read parses one URL per line. Blank lines and lines starting with '#'
// are ignored. Malformed URLs are queued with Err set; only a read failure
// is returned as an error.
func Read(r io.Reader) (*Queue, error) {
	q := NewQueue()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		_ = q.Add(text, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading url list: %w", err)
	}
	return q, nil
}

// Add appends a URL and returns the validation error recorded with it.
func (q *Queue) Add(rawURL string, line int) error {
	e := Entry{URL: rawURL, Line: line}
	if err := checkURL(rawURL); err != nil {
		e.Err = fmt.Errorf("line %d: %w", line, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, e)
	if e.Err != nil {
		q.invalid++
	}
	return e.Err
}

// Pop removes and returns the next entry.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	if e.Err != nil {
		q.invalid--
	}
	return e, true
}

// Len returns the number of entries left.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Invalid returns how many of the remaining entries are malformed.
func (q *Queue) Invalid() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.invalid
}

// checkURL accepts absolute http(s) URLs with a host.
func checkURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}
