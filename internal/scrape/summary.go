package scrape

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/records"
)

// KindCounts tallies record outcomes for one kind.
type KindCounts struct {
	Written   int
	Rewritten int
	Skipped   int
	Stops     int // Bar-lists ended early on a duplicate
}

func (k *KindCounts) add(o KindCounts) {
	k.Written += o.Written
	k.Rewritten += o.Rewritten
	k.Skipped += o.Skipped
	k.Stops += o.Stops
}

// Counts tallies what happened to the tooltips of one or more pages.
type Counts struct {
	Cases     KindCounts
	Deaths    KindCounts
	Sentinels int // No-cases placeholder rows written
	Ignored   int // Tooltips without a known series label
}

// Kind returns the tally for k.
func (c *Counts) Kind(k records.Kind) *KindCounts {
	if k == records.Deaths {
		return &c.Deaths
	}
	return &c.Cases
}

func (c *Counts) record(k records.Kind, o records.Outcome) {
	kc := c.Kind(k)
	switch o {
	case records.Written:
		kc.Written++
	case records.Rewritten:
		kc.Rewritten++
	case records.Skipped:
		kc.Skipped++
	case records.Stop:
		kc.Stops++
	}
}

// Add merges o into c.
func (c *Counts) Add(o Counts) {
	c.Cases.add(o.Cases)
	c.Deaths.add(o.Deaths)
	c.Sentinels += o.Sentinels
	c.Ignored += o.Ignored
}

// Lines returns the number of lines written to record files.
func (c Counts) Lines() int {
	return c.Cases.Written + c.Cases.Rewritten + c.Deaths.Written + c.Deaths.Rewritten + c.Sentinels
}

// URLResult is the outcome of scraping one page.
type URLResult struct {
	URL    string
	File   string // Country file written
	State  chart.ReadyState
	Counts Counts
}

// URLError is a page that failed in recursive mode.
type URLError struct {
	URL string
	Err error
}

// Summary describes a whole run.
type Summary struct {
	Results  []URLResult
	Failed   []URLError
	Manifest string // Set in recursive mode
	Counts   Counts
}

func (s *Summary) addResult(r URLResult) {
	s.Results = append(s.Results, r)
	s.Counts.Add(r.Counts)
}

// Processed returns the number of pages attempted.
func (s Summary) Processed() int {
	return len(s.Results) + len(s.Failed)
}

// String renders the summary for the end of a run.
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s page(s) scraped", humanize.Comma(int64(len(s.Results))))
	if n := len(s.Failed); n > 0 {
		fmt.Fprintf(&sb, ", %s failed", humanize.Comma(int64(n)))
	}
	fmt.Fprintf(&sb, "; cases %s new", humanize.Comma(int64(s.Counts.Cases.Written)))
	if n := s.Counts.Cases.Rewritten; n > 0 {
		fmt.Fprintf(&sb, ", %s rewritten", humanize.Comma(int64(n)))
	}
	fmt.Fprintf(&sb, "; deaths %s new", humanize.Comma(int64(s.Counts.Deaths.Written)))
	if n := s.Counts.Deaths.Rewritten; n > 0 {
		fmt.Fprintf(&sb, ", %s rewritten", humanize.Comma(int64(n)))
	}
	if n := s.Counts.Sentinels; n > 0 {
		fmt.Fprintf(&sb, "; %s no-cases row(s)", humanize.Comma(int64(n)))
	}
	return sb.String()
}
