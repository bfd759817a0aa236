// Package charttest provides an in-memory chart.Page for tests.
package charttest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jmylchreest/chartscrape/internal/chart"
)

// Bar is a rendered bar and the tooltip it shows on hover.
type Bar struct {
	X       float64
	Tooltip string
}

// Group is a rendered chart series.
type Group struct {
	Bars  []Bar
	Width float64 // Container width (default 600)
	Class string  // Group class (default chart.GroupClass)
}

// Site is the page served for one URL.
type Site struct {
	Country    string // Breadcrumb country name; empty omits the breadcrumb
	NoCases    bool
	Groups     []Group
	ReadyAfter int // Readiness polls that see an empty page

	OutOfBounds       int  // Pointer moves that fail before moves succeed
	AlwaysOutOfBounds bool // Every pointer move fails
	StaleReads        int  // Tooltip reads after a hover that still return the previous text
	DetachedReads     int  // Heading and group reads that fail as if the element was re-rendered
}

// Move is a recorded pointer move.
type Move struct {
	Target chart.Handle
	X, Y   float64
}

// Page serves Sites by URL. Unknown URLs fail to navigate.
type Page struct {
	Sites map[string]*Site

	mu        sync.Mutex
	site      *Site
	polls     int
	oobLeft   int
	tooltip   map[int]string
	previous  map[int]string
	staleLeft map[int]int
	detached  int

	Navigated []string
	Moves     []Move
	Scrolls   []chart.Handle
	Scripts   []string
}

// New returns a page serving sites.
func New(sites map[string]*Site) *Page {
	return &Page{Sites: sites}
}

// Navigate implements chart.Page.
func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Navigated = append(p.Navigated, url)
	site, ok := p.Sites[url]
	if !ok {
		p.site = nil
		return fmt.Errorf("charttest: no site for %s", url)
	}
	p.site = site
	p.polls = 0
	p.oobLeft = site.OutOfBounds
	p.tooltip = make(map[int]string)
	p.previous = make(map[int]string)
	p.staleLeft = make(map[int]int)
	p.detached = site.DetachedReads
	return nil
}

func (p *Page) ready() bool {
	return p.polls > p.site.ReadyAfter
}

// Query implements chart.Page.
func (p *Page) Query(_ context.Context, root chart.Handle, selector string) ([]chart.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.site == nil {
		return nil, fmt.Errorf("charttest: no page loaded")
	}

	kind, idx := parseHandle(root)
	switch {
	case root == chart.Document && selector == "h3":
		p.polls++
		if p.ready() && p.site.NoCases {
			return []chart.Handle{"h3"}, nil
		}
		return nil, nil
	case root == chart.Document && selector == "g."+chart.GroupClass:
		if !p.ready() || p.site.NoCases {
			return nil, nil
		}
		out := make([]chart.Handle, len(p.site.Groups))
		for i := range p.site.Groups {
			out[i] = chart.Handle(fmt.Sprintf("g/%d", i))
		}
		return out, nil
	case kind == "g" && selector == "rect":
		bars := p.site.Groups[idx[0]].Bars
		out := make([]chart.Handle, len(bars))
		for j := range bars {
			out[j] = chart.Handle(fmt.Sprintf("rect/%d/%d", idx[0], j))
		}
		return out, nil
	case kind == "frame" && selector == ":scope > svg":
		return []chart.Handle{chart.Handle(fmt.Sprintf("svg/%d", idx[0]))}, nil
	case kind == "frame" && selector == ":scope > div":
		if p.tooltip[idx[0]] == "" && p.staleLeft[idx[0]] == 0 {
			return nil, nil
		}
		return []chart.Handle{chart.Handle(fmt.Sprintf("tip/%d", idx[0]))}, nil
	}
	return nil, fmt.Errorf("charttest: unsupported query %q below %q", selector, root)
}

// Ancestor implements chart.Page.
func (p *Page) Ancestor(_ context.Context, h chart.Handle, levels int) (chart.Handle, error) {
	kind, idx := parseHandle(h)
	if kind == "g" && levels == 2 {
		return chart.Handle(fmt.Sprintf("frame/%d", idx[0])), nil
	}
	return "", fmt.Errorf("charttest: unsupported ancestor %d of %q", levels, h)
}

// Attr implements chart.Page.
func (p *Page) Attr(_ context.Context, h chart.Handle, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kind, idx := parseHandle(h)
	switch {
	case kind == "g" && name == "class":
		if p.detached > 0 {
			p.detached--
			return "", fmt.Errorf("%w: detached %s", chart.ErrElementNotFound, h)
		}
		if c := p.site.Groups[idx[0]].Class; c != "" {
			return c, nil
		}
		return chart.GroupClass, nil
	case kind == "rect" && name == "x":
		return strconv.FormatFloat(p.site.Groups[idx[0]].Bars[idx[1]].X, 'f', -1, 64), nil
	case kind == "svg" && name == "width":
		w := p.site.Groups[idx[0]].Width
		if w == 0 {
			w = 600
		}
		return strconv.FormatFloat(w, 'f', -1, 64), nil
	}
	return "", nil
}

// Text implements chart.Page.
func (p *Page) Text(_ context.Context, h chart.Handle) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kind, idx := parseHandle(h)
	switch kind {
	case "h3":
		if p.detached > 0 {
			p.detached--
			return "", fmt.Errorf("%w: detached %s", chart.ErrElementNotFound, h)
		}
		return "There have been " + chart.NoCasesMarker + ".", nil
	case "tip":
		i := idx[0]
		if p.staleLeft[i] > 0 {
			p.staleLeft[i]--
			return p.previous[i], nil
		}
		return p.tooltip[i], nil
	}
	return "", fmt.Errorf("%w: %s", chart.ErrElementNotFound, h)
}

// MoveTo implements chart.Page.
func (p *Page) MoveTo(_ context.Context, h chart.Handle, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Moves = append(p.Moves, Move{Target: h, X: x, Y: y})
	if p.site.AlwaysOutOfBounds {
		return chart.ErrOutOfBounds
	}
	if p.oobLeft > 0 {
		p.oobLeft--
		return chart.ErrOutOfBounds
	}

	kind, idx := parseHandle(h)
	if kind != "svg" {
		return fmt.Errorf("charttest: pointer moved relative to %q", h)
	}
	i := idx[0]
	if y < 0 {
		p.previous[i] = p.tooltip[i]
		p.tooltip[i] = ""
		return nil
	}
	for _, bar := range p.site.Groups[i].Bars {
		if bar.X+2 == x {
			p.previous[i] = p.tooltip[i]
			p.tooltip[i] = bar.Tooltip
			p.staleLeft[i] = p.site.StaleReads
			break
		}
	}
	return nil
}

// ScrollIntoView implements chart.Page.
func (p *Page) ScrollIntoView(_ context.Context, h chart.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls = append(p.Scrolls, h)
	return nil
}

// Exec implements chart.Page.
func (p *Page) Exec(_ context.Context, script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scripts = append(p.Scripts, script)
	return nil
}

// HTML implements chart.Page.
func (p *Page) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.site == nil {
		return "", fmt.Errorf("charttest: no page loaded")
	}
	var sb strings.Builder
	sb.WriteString(`<html><body><div id="root"><div><div class="header">Dashboard</div>`)
	if p.site.Country != "" {
		sb.WriteString(`<div class="crumbs"><span><a href="/">Global</a></span><span>`)
		sb.WriteString(p.site.Country)
		sb.WriteString(`</span></div>`)
	}
	sb.WriteString(`</div></div></body></html>`)
	return sb.String(), nil
}

// parseHandle splits "rect/1/2" into ("rect", [1 2]).
func parseHandle(h chart.Handle) (string, []int) {
	parts := strings.Split(string(h), "/")
	idx := make([]int, 0, len(parts)-1)
	for _, part := range parts[1:] {
		n, _ := strconv.Atoi(part)
		idx = append(idx, n)
	}
	return parts[0], idx
}

// Tooltip formats the text a dashboard bar shows.
func Tooltip(date string, count int, kind string) string {
	label := "Confirmed Cases"
	if kind == "deaths" {
		label = "Deaths"
	}
	return fmt.Sprintf("%s\n%d %s", date, count, label)
}
