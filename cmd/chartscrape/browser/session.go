package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/logger"
)

// Session is one Chrome tab. Element handles are indexes into a registry
// kept in the page's window, so they die with the document.
type Session struct {
	cfg           Config
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

var _ chart.Page = (*Session)(nil)

// NewSession launches Chrome and opens a tab.
func NewSession(cfg Config) (*Session, error) {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.Width, cfg.Height),
		chromedp.UserAgent(cfg.UserAgent),
	)
	execPath := cfg.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Error("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// Start the browser now so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	logger.Debug("browser started", "headless", cfg.Headless, "exec", execPath, "timeout", cfg.Timeout)
	return &Session{
		cfg:           cfg,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}, nil
}

// Close shuts the tab and the browser.
func (s *Session) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

// run executes actions on the tab, bounded by ctx and the per-operation
// timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// reply is what every registry script returns.
type reply struct {
	Missing bool            `json:"missing"`
	Value   json.RawMessage `json:"value"`
}

// call runs body with the registry bound to r and the JSON encoding of args
// bound to a, and decodes its value into out.
func (s *Session) call(ctx context.Context, body string, args any, out any) error {
	script, err := registryScript(body, args)
	if err != nil {
		return err
	}
	var res reply
	if err := s.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return err
	}
	if res.Missing {
		return chart.ErrElementNotFound
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal(res.Value, out)
}

// Navigate implements chart.Page.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// Query implements chart.Page.
func (s *Session) Query(ctx context.Context, root chart.Handle, selector string) ([]chart.Handle, error) {
	var ids []string
	err := s.call(ctx, queryScript, map[string]string{"root": string(root), "sel": selector}, &ids)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	handles := make([]chart.Handle, len(ids))
	for i, id := range ids {
		handles[i] = chart.Handle(id)
	}
	return handles, nil
}

// Ancestor implements chart.Page.
func (s *Session) Ancestor(ctx context.Context, h chart.Handle, levels int) (chart.Handle, error) {
	var id string
	if err := s.call(ctx, ancestorScript, map[string]any{"h": string(h), "levels": levels}, &id); err != nil {
		return "", fmt.Errorf("ancestor of %s: %w", h, err)
	}
	return chart.Handle(id), nil
}

// Attr implements chart.Page.
func (s *Session) Attr(ctx context.Context, h chart.Handle, name string) (string, error) {
	var v string
	if err := s.call(ctx, attrScript, map[string]string{"h": string(h), "name": name}, &v); err != nil {
		return "", fmt.Errorf("attribute %s of %s: %w", name, h, err)
	}
	return v, nil
}

// Text implements chart.Page.
func (s *Session) Text(ctx context.Context, h chart.Handle) (string, error) {
	var v string
	if err := s.call(ctx, textScript, map[string]string{"h": string(h)}, &v); err != nil {
		return "", fmt.Errorf("text of %s: %w", h, err)
	}
	return v, nil
}

// MoveTo implements chart.Page. The offset is taken from the element's top
// left corner; points outside the viewport fail with chart.ErrOutOfBounds.
func (s *Session) MoveTo(ctx context.Context, h chart.Handle, x, y float64) error {
	var b box
	if err := s.call(ctx, boxScript, map[string]string{"h": string(h)}, &b); err != nil {
		return fmt.Errorf("locating %s: %w", h, err)
	}
	px, py, ok := b.point(x, y)
	if !ok {
		return fmt.Errorf("%w: (%.0f, %.0f) in %.0fx%.0f viewport", chart.ErrOutOfBounds, px, py, b.ViewWidth, b.ViewHeight)
	}
	return s.run(ctx, chromedp.MouseEvent(input.MouseMoved, px, py))
}

// ScrollIntoView implements chart.Page.
func (s *Session) ScrollIntoView(ctx context.Context, h chart.Handle) error {
	if err := s.call(ctx, scrollScript, map[string]string{"h": string(h)}, nil); err != nil {
		return fmt.Errorf("scrolling to %s: %w", h, err)
	}
	return nil
}

// Exec implements chart.Page.
func (s *Session) Exec(ctx context.Context, script string) error {
	return s.run(ctx, chromedp.Evaluate(script, nil))
}

// HTML implements chart.Page.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return "", err
	}
	return html, nil
}

// box is an element's viewport rectangle and the viewport size.
type box struct {
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	ViewWidth  float64 `json:"vw"`
	ViewHeight float64 `json:"vh"`
}

// point converts an element-relative offset to viewport coordinates.
func (b box) point(x, y float64) (float64, float64, bool) {
	px, py := b.Left+x, b.Top+y
	ok := px >= 0 && py >= 0 && px < b.ViewWidth && py < b.ViewHeight
	return px, py, ok
}

var errEmptyBody = errors.New("empty script body")

// registryScript wraps body with the element registry. Inside body, r.get
// resolves a handle (null when gone) and r.id registers an element.
func registryScript(body string, args any) (string, error) {
	if body == "" {
		return "", errEmptyBody
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding script arguments: %w", err)
	}
	return fmt.Sprintf("(() => {\n%s\nconst a = %s;\n%s\n})()", registryPrelude, encoded, body), nil
}

const registryPrelude = `const r = window.__chartscrape || (window.__chartscrape = { els: [], ids: new WeakMap() });
r.id = r.id || ((el) => {
  let i = r.ids.get(el);
  if (i === undefined) { i = r.els.length; r.els.push(el); r.ids.set(el, i); }
  return String(i);
});
r.get = r.get || ((h) => {
  if (h === "") { return document; }
  const el = r.els[Number(h)];
  return el && el.isConnected ? el : null;
});`

const (
	queryScript = `const root = r.get(a.root);
if (!root) { return { missing: true }; }
return { value: Array.from(root.querySelectorAll(a.sel)).map(r.id) };`

	ancestorScript = `let el = r.get(a.h);
for (let i = 0; el && i < a.levels; i++) { el = el.parentElement || el.parentNode; }
if (!el || el === document) { return { missing: true }; }
return { value: r.id(el) };`

	attrScript = `const el = r.get(a.h);
if (!el) { return { missing: true }; }
return { value: el.getAttribute(a.name) || "" };`

	textScript = `const el = r.get(a.h);
if (!el) { return { missing: true }; }
const t = el.innerText !== undefined ? el.innerText : el.textContent;
return { value: (t || "").trim() };`

	boxScript = `const el = r.get(a.h);
if (!el) { return { missing: true }; }
const b = el.getBoundingClientRect();
return { value: { left: b.left, top: b.top, vw: window.innerWidth, vh: window.innerHeight } };`

	scrollScript = `const el = r.get(a.h);
if (!el) { return { missing: true }; }
el.scrollIntoView({ block: "center", inline: "center" });
return {};`
)

// SaveScreenshot writes a PNG of the current viewport to path.
func (s *Session) SaveScreenshot(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var png []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&png)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	return os.WriteFile(path, png, 0o644) //#nosec G306 -- debug artefact
}
