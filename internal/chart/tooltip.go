package chart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/chartscrape/internal/logger"
)

// DefaultMaxScrollRetries bounds scroll-and-retry on out-of-bounds moves.
const DefaultMaxScrollRetries = 100

// scrollPause lets the page settle after a scroll.
const scrollPause = 10 * time.Millisecond

// SeenTexts accumulates tooltip texts already read for one bar-list, so a
// tooltip left over from the previous bar is not read twice.
type SeenTexts struct {
	texts map[string]struct{}
}

// NewSeenTexts returns an empty accumulator.
func NewSeenTexts() *SeenTexts {
	return &SeenTexts{texts: make(map[string]struct{})}
}

// Has reports whether text was already read.
func (s *SeenTexts) Has(text string) bool {
	_, ok := s.texts[text]
	return ok
}

// Add records text as read.
func (s *SeenTexts) Add(text string) {
	s.texts[text] = struct{}{}
}

// Len returns the number of texts read.
func (s *SeenTexts) Len() int {
	return len(s.texts)
}

// TooltipReader hovers chart bars and reads the tooltip they render.
type TooltipReader struct {
	Page             Page
	Policy           Policy // Tooltip polling
	MaxScrollRetries int    // Scrolls allowed per pointer move (0 = DefaultMaxScrollRetries)

	// OnScroll, when set, is called for every out-of-bounds retry.
	OnScroll func()
}

// Settle parks the pointer at the right edge of the container, just above
// it, so no tooltip from a previous series stays visible.
func (r *TooltipReader) Settle(ctx context.Context, target Target) error {
	raw, err := r.Page.Attr(ctx, target.Container, "width")
	if err != nil {
		return fmt.Errorf("reading container width: %w", err)
	}
	width, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "px"), 64)
	if err != nil {
		return fmt.Errorf("parsing container width %q: %w", raw, err)
	}

	return r.withScrollRetry(ctx, target.Container, func() error {
		return r.Page.MoveTo(ctx, target.Container, width, -1)
	})
}

// Read hovers bar and returns the first tooltip text not already in seen.
// The text is added to seen.
func (r *TooltipReader) Read(ctx context.Context, target Target, bar Bar, seen *SeenTexts) (string, error) {
	var text string
	err := r.withScrollRetry(ctx, bar.Handle, func() error {
		if err := r.Page.MoveTo(ctx, target.Container, bar.X+hoverOffset, hoverY); err != nil {
			return err
		}
		var err error
		text, err = r.awaitTooltip(ctx, target, seen)
		return err
	})
	if err != nil {
		return "", err
	}

	seen.Add(text)
	return text, nil
}

// awaitTooltip polls for a tooltip whose text differs from every text seen.
func (r *TooltipReader) awaitTooltip(ctx context.Context, target Target, seen *SeenTexts) (string, error) {
	var text string
	err := r.Policy.Poll(ctx, func(ctx context.Context) (bool, error) {
		divs, err := r.Page.Query(ctx, target.Frame, ":scope > div")
		if err != nil {
			if errors.Is(err, ErrElementNotFound) {
				return false, nil
			}
			return false, err
		}
		if len(divs) == 0 {
			return false, nil
		}

		current, err := r.Page.Text(ctx, divs[0])
		if err != nil {
			if errors.Is(err, ErrElementNotFound) {
				return false, nil
			}
			return false, err
		}
		if current == "" || seen.Has(current) {
			return false, nil
		}
		text = current
		return true, nil
	})
	if err != nil {
		return "", fmt.Errorf("reading tooltip: %w", err)
	}
	return text, nil
}

// withScrollRetry runs move, scrolling scrollTo into view and retrying while
// it fails with ErrOutOfBounds.
func (r *TooltipReader) withScrollRetry(ctx context.Context, scrollTo Handle, move func() error) error {
	limit := r.MaxScrollRetries
	if limit <= 0 {
		limit = DefaultMaxScrollRetries
	}

	for attempt := 0; ; attempt++ {
		err := move()
		if err == nil || !errors.Is(err, ErrOutOfBounds) {
			return err
		}
		if attempt >= limit {
			return fmt.Errorf("%w: %d scrolls: %v", ErrScrollRetriesExceeded, limit, err)
		}

		logger.Debug("pointer target out of bounds, scrolling", "attempt", attempt+1)
		if r.OnScroll != nil {
			r.OnScroll()
		}
		if err := r.Page.ScrollIntoView(ctx, scrollTo); err != nil {
			return fmt.Errorf("scrolling into view: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(scrollPause):
		}
	}
}
