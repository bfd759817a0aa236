package chart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/chart/charttest"
	"github.com/jmylchreest/chartscrape/internal/records"
)

var fastPolicy = chart.Policy{Interval: time.Millisecond, Timeout: time.Second}

func loaded(t *testing.T, site *charttest.Site) *charttest.Page {
	t.Helper()
	page := charttest.New(map[string]*charttest.Site{"https://dash/x": site})
	if err := page.Navigate(context.Background(), "https://dash/x"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	return page
}

// --- Policy Tests ---

func TestPolicy_ReturnsWhenDone(t *testing.T) {
	calls := 0
	err := fastPolicy.Poll(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 checks, got %d", calls)
	}
}

func TestPolicy_Timeout(t *testing.T) {
	p := chart.Policy{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}
	err := p.Poll(context.Background(), func(context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, chart.ErrPollTimeout) {
		t.Errorf("expected ErrPollTimeout, got %v", err)
	}
}

func TestPolicy_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := chart.Policy{Interval: time.Millisecond} // no timeout
	err := p.Poll(ctx, func(context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPolicy_CheckError(t *testing.T) {
	boom := errors.New("boom")
	err := fastPolicy.Poll(context.Background(), func(context.Context) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected check error, got %v", err)
	}
}

// --- Readiness Tests ---

func TestAwaitReady_HasData(t *testing.T) {
	page := loaded(t, &charttest.Site{
		ReadyAfter: 3,
		Groups:     []charttest.Group{{}, {}},
	})

	r, err := chart.AwaitReady(context.Background(), page, fastPolicy)
	if err != nil {
		t.Fatalf("AwaitReady() error = %v", err)
	}
	if r.State != chart.HasData {
		t.Errorf("expected HasData, got %s", r.State)
	}
	if len(r.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(r.Groups))
	}
}

func TestAwaitReady_NoCases(t *testing.T) {
	page := loaded(t, &charttest.Site{NoCases: true, ReadyAfter: 1})

	r, err := chart.AwaitReady(context.Background(), page, fastPolicy)
	if err != nil {
		t.Fatalf("AwaitReady() error = %v", err)
	}
	if r.State != chart.NoCases {
		t.Errorf("expected NoCases, got %s", r.State)
	}
}

func TestAwaitReady_IgnoresGroupsWithExtraClasses(t *testing.T) {
	page := loaded(t, &charttest.Site{
		Groups: []charttest.Group{{Class: "vx-group vx-axis"}},
	})

	p := chart.Policy{Interval: time.Millisecond, Timeout: 30 * time.Millisecond}
	_, err := chart.AwaitReady(context.Background(), page, p)
	if !errors.Is(err, chart.ErrPollTimeout) {
		t.Errorf("expected ErrPollTimeout, got %v", err)
	}
}

func TestAwaitReady_RetriesReplacedElements(t *testing.T) {
	tests := []struct {
		name string
		site *charttest.Site
		want chart.ReadyState
	}{
		{name: "heading", site: &charttest.Site{NoCases: true, DetachedReads: 1}, want: chart.NoCases},
		{name: "group", site: &charttest.Site{Groups: []charttest.Group{{}}, DetachedReads: 2}, want: chart.HasData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := loaded(t, tt.site)

			r, err := chart.AwaitReady(context.Background(), page, fastPolicy)
			if err != nil {
				t.Fatalf("AwaitReady() error = %v", err)
			}
			if r.State != tt.want {
				t.Errorf("expected %s, got %s", tt.want, r.State)
			}
		})
	}
}

// --- Country Tests ---

func TestCountryFromHTML(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    string
		wantErr error
	}{
		{
			name: "breadcrumb",
			html: `<div><span><a href="/">Global</a></span><span>United States of America</span></div>`,
			want: "united_states_of_america.csv",
		},
		{
			name: "anchor text is trimmed",
			html: `<nav><p><a> Global </a></p><span>Region</span><span>Viet Nam</span></nav>`,
			want: "viet_nam.csv",
		},
		{
			name:    "no anchor",
			html:    `<div><span>Germany</span></div>`,
			wantErr: chart.ErrElementNotFound,
		},
		{
			name:    "no country span",
			html:    `<div><span><a href="/">Global</a></span></div>`,
			wantErr: chart.ErrElementNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chart.CountryFromHTML(tt.html)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CountryFromHTML() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CountryFromHTML() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountryFromHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	page := loaded(t, &charttest.Site{Country: "Côte d'Ivoire"})

	got, err := chart.ResolveCountry(context.Background(), page)
	if err != nil {
		t.Fatalf("ResolveCountry() error = %v", err)
	}
	if got != "côte_d'ivoire.csv" {
		t.Errorf("ResolveCountry() = %q", got)
	}
}

// --- Traversal Tests ---

func barXs(bars []chart.Bar) []float64 {
	xs := make([]float64, len(bars))
	for i, b := range bars {
		xs[i] = b.X
	}
	return xs
}

// The right-to-left order carries no meaning of its own; it is kept because
// existing data files were produced with it.
func TestBars_RightToLeftIsArbitraryButStable(t *testing.T) {
	page := loaded(t, &charttest.Site{
		Groups: []charttest.Group{{Bars: []charttest.Bar{{X: 10}, {X: 50}, {X: 5}, {X: 30}}}},
	})

	bars, err := chart.Bars(context.Background(), page, "g/0", chart.RightToLeft)
	if err != nil {
		t.Fatalf("Bars() error = %v", err)
	}
	if diff := cmp.Diff([]float64{50, 30, 10, 5}, barXs(bars)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBars_LeftToRight(t *testing.T) {
	page := loaded(t, &charttest.Site{
		Groups: []charttest.Group{{Bars: []charttest.Bar{{X: 10}, {X: 50}, {X: 5}, {X: 30}}}},
	})

	bars, err := chart.Bars(context.Background(), page, "g/0", chart.LeftToRight)
	if err != nil {
		t.Fatalf("Bars() error = %v", err)
	}
	if diff := cmp.Diff([]float64{5, 10, 30, 50}, barXs(bars)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSortBars_EqualXKeepsDocumentOrder(t *testing.T) {
	bars := []chart.Bar{{Handle: "a", X: 1}, {Handle: "b", X: 1}, {Handle: "c", X: 2}}
	chart.SortBars(bars, chart.RightToLeft)

	got := []chart.Handle{bars[0].Handle, bars[1].Handle, bars[2].Handle}
	if diff := cmp.Diff([]chart.Handle{"c", "a", "b"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOrder(t *testing.T) {
	if o, err := chart.ParseOrder(""); err != nil || o != chart.RightToLeft {
		t.Errorf("ParseOrder(\"\") = %q, %v", o, err)
	}
	if _, err := chart.ParseOrder("random"); err == nil {
		t.Error("expected error for unknown order")
	}
}

// --- Tooltip Tests ---

func readAll(t *testing.T, page *charttest.Page, r *chart.TooltipReader) ([]string, error) {
	t.Helper()
	ctx := context.Background()

	target, err := chart.Locate(ctx, page, "g/0")
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if err := r.Settle(ctx, target); err != nil {
		return nil, err
	}
	bars, err := chart.Bars(ctx, page, target.Group, chart.RightToLeft)
	if err != nil {
		t.Fatalf("Bars() error = %v", err)
	}

	seen := chart.NewSeenTexts()
	var texts []string
	for _, bar := range bars {
		text, err := r.Read(ctx, target, bar, seen)
		if err != nil {
			return texts, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func TestTooltipReader_ReadsEachBar(t *testing.T) {
	page := loaded(t, &charttest.Site{
		Groups: []charttest.Group{{Width: 420, Bars: []charttest.Bar{
			{X: 0, Tooltip: charttest.Tooltip("2020-03-01", 1, "cases")},
			{X: 8, Tooltip: charttest.Tooltip("2020-03-02", 4, "cases")},
		}}},
	})

	texts, err := readAll(t, page, &chart.TooltipReader{Page: page, Policy: fastPolicy})
	if err != nil {
		t.Fatalf("read error = %v", err)
	}

	want := []string{"2020-03-02\n4 Confirmed Cases", "2020-03-01\n1 Confirmed Cases"}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Errorf("tooltips mismatch (-want +got):\n%s", diff)
	}

	wantMoves := []charttest.Move{
		{Target: "svg/0", X: 420, Y: -1},
		{Target: "svg/0", X: 10, Y: 15},
		{Target: "svg/0", X: 2, Y: 15},
	}
	if diff := cmp.Diff(wantMoves, page.Moves); diff != "" {
		t.Errorf("pointer moves mismatch (-want +got):\n%s", diff)
	}
}

func TestTooltipReader_SkipsStaleTooltip(t *testing.T) {
	page := loaded(t, &charttest.Site{
		StaleReads: 5,
		Groups: []charttest.Group{{Bars: []charttest.Bar{
			{X: 0, Tooltip: "a\n1 Deaths"},
			{X: 8, Tooltip: "b\n2 Deaths"},
			{X: 16, Tooltip: "c\n3 Deaths"},
		}}},
	})

	texts, err := readAll(t, page, &chart.TooltipReader{Page: page, Policy: fastPolicy})
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if diff := cmp.Diff([]string{"c\n3 Deaths", "b\n2 Deaths", "a\n1 Deaths"}, texts); diff != "" {
		t.Errorf("tooltips mismatch (-want +got):\n%s", diff)
	}
}

func TestTooltipReader_RetriesOutOfBounds(t *testing.T) {
	page := loaded(t, &charttest.Site{
		OutOfBounds: 3,
		Groups:      []charttest.Group{{Bars: []charttest.Bar{{X: 4, Tooltip: "d\n9 Deaths"}}}},
	})

	scrolls := 0
	r := &chart.TooltipReader{Page: page, Policy: fastPolicy, OnScroll: func() { scrolls++ }}
	texts, err := readAll(t, page, r)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if len(texts) != 1 {
		t.Fatalf("expected 1 tooltip, got %d", len(texts))
	}
	if scrolls != 3 || len(page.Scrolls) != 3 {
		t.Errorf("expected 3 scrolls, got hook=%d page=%d", scrolls, len(page.Scrolls))
	}
	if page.Scrolls[0] != "svg/0" {
		t.Errorf("settle should scroll the container, scrolled %q", page.Scrolls[0])
	}
}

func TestTooltipReader_ScrollRetriesCapped(t *testing.T) {
	page := loaded(t, &charttest.Site{
		AlwaysOutOfBounds: true,
		Groups:            []charttest.Group{{Bars: []charttest.Bar{{X: 4, Tooltip: "d\n9 Deaths"}}}},
	})

	r := &chart.TooltipReader{Page: page, Policy: fastPolicy, MaxScrollRetries: 2}
	_, err := readAll(t, page, r)
	if !errors.Is(err, chart.ErrScrollRetriesExceeded) {
		t.Fatalf("expected ErrScrollRetriesExceeded, got %v", err)
	}
	if len(page.Moves) != 3 {
		t.Errorf("expected 3 move attempts, got %d", len(page.Moves))
	}
}

func TestTooltipReader_TimesOutWithoutNewText(t *testing.T) {
	page := loaded(t, &charttest.Site{
		Groups: []charttest.Group{{Bars: []charttest.Bar{
			{X: 0, Tooltip: "same\n1 Deaths"},
			{X: 8, Tooltip: "same\n1 Deaths"},
		}}},
	})

	r := &chart.TooltipReader{Page: page, Policy: chart.Policy{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}}
	texts, err := readAll(t, page, r)
	if !errors.Is(err, chart.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if len(texts) != 1 {
		t.Errorf("expected the first tooltip before the timeout, got %d", len(texts))
	}
}

// --- Parsing Tests ---

func TestParseTooltip(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    records.Record
		wantErr bool
	}{
		{
			name: "cases",
			text: "2020-03-01\n5 Confirmed Cases",
			want: records.Record{Date: "2020-03-01", Count: 5, Kind: records.Cases},
		},
		{
			name: "deaths with separator",
			text: "Apr 02, 2020\n1,234 Deaths",
			want: records.Record{Date: "Apr 02, 2020", Count: 1234, Kind: records.Deaths},
		},
		{
			name: "crlf",
			text: "2020-03-01\r\n7 Deaths",
			want: records.Record{Date: "2020-03-01", Count: 7, Kind: records.Deaths},
		},
		{name: "unknown label", text: "2020-03-01\n5 Recovered", wantErr: true},
		{name: "single line", text: "5 Confirmed Cases", wantErr: true},
		{name: "bad count", text: "2020-03-01\nmany Deaths", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chart.ParseTooltip(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTooltip() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTooltip() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTooltip_NotARecord(t *testing.T) {
	_, err := chart.ParseTooltip("2020-03-01\n5 Tests")
	if !errors.Is(err, chart.ErrNotARecord) {
		t.Errorf("expected ErrNotARecord, got %v", err)
	}
}

// --- Strip Tests ---

func TestStripDecorations(t *testing.T) {
	page := loaded(t, &charttest.Site{})

	if err := chart.StripDecorations(context.Background(), page, ""); err != nil {
		t.Fatalf("StripDecorations() error = %v", err)
	}
	if len(page.Scripts) != 0 {
		t.Error("empty selector should not run a script")
	}

	if err := chart.StripDecorations(context.Background(), page, chart.DefaultStripSelector); err != nil {
		t.Fatalf("StripDecorations() error = %v", err)
	}
	if len(page.Scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(page.Scripts))
	}
}
