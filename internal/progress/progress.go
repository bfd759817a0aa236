// Package progress shows a terminal spinner while chartscrape waits on the
// browser.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Indicator reports that a long wait is in progress.
type Indicator interface {
	Start(msg string)
	Stop()
}

// Spinner is an Indicator drawn on a terminal. It draws nothing when the
// writer is not a terminal.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner returns a spinner writing to w (stderr when nil).
func NewSpinner(w io.Writer) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	return &Spinner{
		s: spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w)),
	}
}

// Start begins spinning with msg as the suffix.
func (p *Spinner) Start(msg string) {
	p.s.Stop()
	p.s.Suffix = " " + msg
	p.s.Start()
}

// Stop halts the spinner and clears its line.
func (p *Spinner) Stop() {
	p.s.Stop()
}

// Nop is an Indicator that does nothing.
type Nop struct{}

func (Nop) Start(string) {}
func (Nop) Stop()        {}

// New returns a terminal spinner, or Nop when quiet.
func New(quiet bool) Indicator {
	if quiet {
		return Nop{}
	}
	return NewSpinner(os.Stderr)
}
