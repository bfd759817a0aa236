package chart

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Order is the sequence in which the bars of a group are visited.
type Order string

const (
	// RightToLeft visits bars by descending x + 2. This is the historical
	// order of the scraper and the default; the offset has no effect on the
	// ordering itself.
	RightToLeft Order = "right-to-left"
	// LeftToRight visits bars by ascending x.
	LeftToRight Order = "left-to-right"
)

// ParseOrder validates an order name.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case RightToLeft, LeftToRight:
		return o, nil
	case "":
		return RightToLeft, nil
	default:
		return "", fmt.Errorf("unknown bar order: %q (use %q or %q)", s, RightToLeft, LeftToRight)
	}
}

// hoverOffset is added to a bar's x to land the pointer inside the bar.
const hoverOffset = 2

// hoverY is the vertical pointer offset inside the chart container.
const hoverY = 15

// Bar is one rect of a chart group.
type Bar struct {
	Handle Handle
	X      float64
}

// Target groups the elements involved in reading one chart series.
type Target struct {
	Group     Handle // The g.vx-group holding the bars
	Container Handle // The svg the pointer is positioned against
	Frame     Handle // Common ancestor of the svg and the tooltip div
}

// Locate finds the container svg of a chart group: the direct svg child of
// the group's grandparent.
func Locate(ctx context.Context, page Page, group Handle) (Target, error) {
	frame, err := page.Ancestor(ctx, group, 2)
	if err != nil {
		return Target{}, fmt.Errorf("locating chart frame: %w", err)
	}
	svgs, err := page.Query(ctx, frame, ":scope > svg")
	if err != nil {
		return Target{}, fmt.Errorf("locating chart container: %w", err)
	}
	if len(svgs) == 0 {
		return Target{}, fmt.Errorf("%w: chart container svg", ErrElementNotFound)
	}
	return Target{Group: group, Container: svgs[0], Frame: frame}, nil
}

// Bars returns the rect elements of a group in the requested order.
func Bars(ctx context.Context, page Page, group Handle, order Order) ([]Bar, error) {
	rects, err := page.Query(ctx, group, "rect")
	if err != nil {
		return nil, fmt.Errorf("listing bars: %w", err)
	}

	bars := make([]Bar, 0, len(rects))
	for _, h := range rects {
		raw, err := page.Attr(ctx, h, "x")
		if err != nil {
			return nil, fmt.Errorf("reading bar position: %w", err)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing bar x %q: %w", raw, err)
		}
		bars = append(bars, Bar{Handle: h, X: x})
	}

	SortBars(bars, order)
	return bars, nil
}

// SortBars orders bars in place. Bars with equal x keep document order.
func SortBars(bars []Bar, order Order) {
	sort.SliceStable(bars, func(i, j int) bool {
		if order == LeftToRight {
			return bars[i].X < bars[j].X
		}
		return bars[i].X+hoverOffset > bars[j].X+hoverOffset
	})
}
