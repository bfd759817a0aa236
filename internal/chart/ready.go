package chart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/chartscrape/internal/logger"
)

// Page markers of the dashboard.
const (
	// NoCasesMarker is the heading text shown for countries without data.
	NoCasesMarker = "0 cases reported to the WHO for this country, territory, or area"
	// GroupClass is the exact class of a rendered chart series.
	GroupClass = "vx-group"
)

// ReadyState is the outcome of waiting for the page to render.
type ReadyState int

const (
	// NoCases means the page reports no cases for the country.
	NoCases ReadyState = iota + 1
	// HasData means at least one chart group was rendered.
	HasData
)

func (s ReadyState) String() string {
	switch s {
	case NoCases:
		return "no-cases"
	case HasData:
		return "has-data"
	default:
		return "unknown"
	}
}

// Readiness describes a rendered page.
type Readiness struct {
	State  ReadyState
	Groups []Handle // Chart groups, set when State is HasData
}

// AwaitReady polls the page until either the no-cases heading or a chart
// group is present. The no-cases heading wins when both appear in the same
// poll. Elements replaced while the dashboard renders only delay the next
// poll.
func AwaitReady(ctx context.Context, page Page, policy Policy) (Readiness, error) {
	var result Readiness
	polls := 0

	err := policy.Poll(ctx, func(ctx context.Context) (bool, error) {
		polls++

		noCases, err := hasNoCasesHeading(ctx, page)
		if err != nil {
			return false, notYet(err)
		}
		if noCases {
			result = Readiness{State: NoCases}
			return true, nil
		}

		groups, err := chartGroups(ctx, page)
		if err != nil {
			return false, notYet(err)
		}
		if len(groups) > 0 {
			result = Readiness{State: HasData, Groups: groups}
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return Readiness{}, fmt.Errorf("waiting for chart data: %w", err)
	}

	logger.DebugContext(ctx, "page ready", "state", result.State, "groups", len(result.Groups), "polls", polls)
	return result, nil
}

// notYet drops ErrElementNotFound so the poll retries.
func notYet(err error) error {
	if errors.Is(err, ErrElementNotFound) {
		logger.Debug("page element replaced while rendering", "error", err)
		return nil
	}
	return err
}

func hasNoCasesHeading(ctx context.Context, page Page) (bool, error) {
	headings, err := page.Query(ctx, Document, "h3")
	if err != nil {
		return false, err
	}
	for _, h := range headings {
		text, err := page.Text(ctx, h)
		if err != nil {
			return false, err
		}
		if strings.Contains(text, NoCasesMarker) {
			return true, nil
		}
	}
	return false, nil
}

// chartGroups returns groups whose class is exactly GroupClass; nested
// groups carrying extra classes are not series.
func chartGroups(ctx context.Context, page Page) ([]Handle, error) {
	candidates, err := page.Query(ctx, Document, "g."+GroupClass)
	if err != nil {
		return nil, err
	}
	var groups []Handle
	for _, h := range candidates {
		class, err := page.Attr(ctx, h, "class")
		if err != nil {
			return nil, err
		}
		if class == GroupClass {
			groups = append(groups, h)
		}
	}
	return groups, nil
}
