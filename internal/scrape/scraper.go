package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/logger"
	"github.com/jmylchreest/chartscrape/internal/metrics"
	"github.com/jmylchreest/chartscrape/internal/progress"
	"github.com/jmylchreest/chartscrape/internal/records"
	"github.com/jmylchreest/chartscrape/internal/urllist"
)

var (
	// ErrInputNotFound indicates the URL list file does not exist.
	ErrInputNotFound = errors.New("input file not found")
	// ErrOverwriteDeclined indicates the user kept an existing manifest.
	ErrOverwriteDeclined = errors.New("manifest overwrite declined")
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(question string) (bool, error)

// Option configures a Scraper.
type Option func(*Scraper)

// WithMetrics records run metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) {
		s.metrics = m
	}
}

// WithProgress shows p while waiting for pages to render.
func WithProgress(p progress.Indicator) Option {
	return func(s *Scraper) {
		s.progress = p
	}
}

// WithConfirm sets the overwrite prompt. Without one an existing manifest
// is never overwritten unless Reset is set.
func WithConfirm(fn ConfirmFunc) Option {
	return func(s *Scraper) {
		s.confirm = fn
	}
}

// WithFailureHook calls fn after a page fails, while the page is still
// loaded.
func WithFailureHook(fn func(url string, err error)) Option {
	return func(s *Scraper) {
		s.onFailure = fn
	}
}

// Scraper scrapes chart pages through one browser page.
type Scraper struct {
	cfg       Config
	page      chart.Page
	reader    *chart.TooltipReader
	metrics   *metrics.Metrics
	progress  progress.Indicator
	confirm   ConfirmFunc
	onFailure func(url string, err error)
}

// New validates cfg and returns a Scraper driving page.
func New(cfg Config, page chart.Page, opts ...Option) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:      cfg,
		page:     page,
		progress: progress.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reader = &chart.TooltipReader{
		Page:             page,
		Policy:           cfg.TooltipPolicy(),
		MaxScrollRetries: cfg.MaxScrollRetries,
		OnScroll:         s.metrics.IncScrollRetry,
	}
	return s, nil
}

// Destination says where the records of one page go.
type Destination struct {
	File string // Explicit country file; overrides Dir
	Dir  string // Directory holding one file per country
}

// Run scrapes the configured input.
func (s *Scraper) Run(ctx context.Context) (Summary, error) {
	if s.cfg.Recursive {
		return s.runList(ctx)
	}
	return s.runSingle(ctx)
}

func (s *Scraper) runSingle(ctx context.Context) (Summary, error) {
	var summary Summary

	if dir := filepath.Dir(s.cfg.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, fmt.Errorf("creating output directory: %w", err)
		}
	}

	res, err := s.ScrapeURL(ctx, s.cfg.Input, Destination{File: s.cfg.Output})
	if err != nil {
		s.failed(s.cfg.Input, err)
		return summary, err
	}
	s.metrics.IncURL("ok")
	summary.addResult(res)
	return summary, nil
}

func (s *Scraper) runList(ctx context.Context) (Summary, error) {
	var summary Summary

	queue, err := urllist.Load(s.cfg.Input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return summary, fmt.Errorf("%w: %s", ErrInputNotFound, s.cfg.Input)
		}
		return summary, fmt.Errorf("loading url list: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Output, 0o755); err != nil {
		return summary, fmt.Errorf("creating output directory: %w", err)
	}

	manifestPath := filepath.Join(s.cfg.Output, filepath.Base(s.cfg.Input))
	if err := s.checkManifest(manifestPath); err != nil {
		return summary, err
	}

	manifest, err := os.Create(manifestPath) //#nosec G304 -- path derived from user flags
	if err != nil {
		return summary, fmt.Errorf("creating manifest: %w", err)
	}
	summary.Manifest = manifestPath

	logger.Status("retrieving data listed in %s to %s", s.cfg.Input, s.cfg.Output)
	logger.Info("scraping url list", "pages", queue.Len(), "invalid", queue.Invalid(), "manifest", manifestPath)

	for {
		entry, ok := queue.Pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			_ = manifest.Close()
			return summary, err
		}

		var res URLResult
		err := entry.Err
		if err == nil {
			res, err = s.ScrapeURL(ctx, entry.URL, Destination{Dir: s.cfg.Output})
		}
		if err != nil && ctx.Err() != nil {
			_ = manifest.Close()
			return summary, err
		}
		if werr := writeManifestLine(manifest, res.File); werr != nil {
			_ = manifest.Close()
			return summary, werr
		}
		if err != nil {
			s.failed(entry.URL, err)
			logger.ErrorContext(ctx, "scraping page failed", "url", entry.URL, "line", entry.Line, "error", err)
			summary.Failed = append(summary.Failed, URLError{URL: entry.URL, Err: err})
			continue
		}
		s.metrics.IncURL("ok")
		summary.addResult(res)
	}

	if err := manifest.Close(); err != nil {
		return summary, fmt.Errorf("closing manifest: %w", err)
	}
	return summary, nil
}

// writeManifestLine records the country file of one list entry. Entries
// that never reached a country file get an empty line, so line N of the
// manifest always belongs to entry N of the list.
func writeManifestLine(w io.Writer, file string) error {
	name := ""
	if file != "" {
		name = filepath.Base(file)
	}
	if _, err := io.WriteString(w, name+"\n"); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func (s *Scraper) failed(url string, err error) {
	s.metrics.IncURL("failed")
	if s.onFailure != nil {
		s.onFailure(url, err)
	}
}

// checkManifest asks before replacing an existing manifest.
func (s *Scraper) checkManifest(path string) error {
	if s.cfg.Reset {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking manifest: %w", err)
	}

	if s.confirm == nil {
		return fmt.Errorf("%w: %s", ErrOverwriteDeclined, path)
	}
	ok, err := s.confirm(path + " already exists, overwrite it?")
	if err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	if !ok {
		logger.Status("not overwriting file")
		return fmt.Errorf("%w: %s", ErrOverwriteDeclined, path)
	}
	return nil
}

// ScrapeURL loads one chart page and merges its values into the country
// file chosen by dest.
func (s *Scraper) ScrapeURL(ctx context.Context, url string, dest Destination) (res URLResult, err error) {
	start := time.Now()
	res.URL = url
	log := logger.With("url", url)

	logger.Status("retrieving data from %s", url)
	if err := s.page.Navigate(ctx, url); err != nil {
		return res, fmt.Errorf("loading %s: %w", url, err)
	}

	s.progress.Start("waiting for chart data")
	ready, err := chart.AwaitReady(ctx, s.page, s.cfg.ReadyPolicy())
	s.progress.Stop()
	if err != nil {
		return res, err
	}
	s.metrics.ObserveReadyWait(time.Since(start))
	res.State = ready.State

	name, err := chart.ResolveCountry(ctx, s.page)
	if err != nil {
		return res, fmt.Errorf("resolving country: %w", err)
	}
	res.File = dest.File
	if res.File == "" {
		res.File = filepath.Join(dest.Dir, name)
	}
	logger.Status("writing to data %s", res.File)

	if err := chart.StripDecorations(ctx, s.page, s.cfg.StripSelector); err != nil {
		logger.WarnContext(ctx, "could not remove page decorations", "url", url, "selector", s.cfg.StripSelector, "error", err)
	}

	if _, statErr := os.Stat(res.File); statErr != nil {
		logger.Status("no existing file was found, generating new one")
	} else {
		logger.Status("loading existing data from file")
	}

	store, err := records.Open(res.File, records.CountryFromFile(name), records.Options{
		Reset:       s.cfg.Reset,
		OnDuplicate: s.cfg.OnDuplicate,
	})
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing %s: %w", store.Path(), cerr))
		}
		s.metrics.ObserveURL(time.Since(start))
	}()
	seen := store.Seen()
	log.Debug("country file loaded", "file", store.Path(),
		"cases", seen.Len(records.Cases), "deaths", seen.Len(records.Deaths))

	if ready.State == chart.NoCases {
		n, err := store.WriteNoCases()
		res.Counts.Sentinels = n
		for i := 0; i < n; i++ {
			s.metrics.IncRecord("sentinel", records.Written.String())
		}
		if err != nil {
			return res, err
		}
		log.Info("no cases reported", "sentinels_written", n)
		logger.Status("done")
		return res, nil
	}

	country := records.CountryFromFile(name)
	for i, group := range ready.Groups {
		counts, err := s.scrapeGroup(ctx, store, country, group)
		res.Counts.Add(counts)
		if err != nil {
			return res, fmt.Errorf("chart %d: %w", i+1, err)
		}
	}

	log.Info("page scraped", "file", store.Path(),
		"cases", res.Counts.Cases.Written, "deaths", res.Counts.Deaths.Written,
		"duration", time.Since(start).Round(time.Millisecond))
	logger.Status("done")
	return res, nil
}

// scrapeGroup reads every bar of one chart series, newest first by
// default, until a duplicate ends the list.
func (s *Scraper) scrapeGroup(ctx context.Context, store *records.Store, country string, group chart.Handle) (Counts, error) {
	var counts Counts

	target, err := chart.Locate(ctx, s.page, group)
	if err != nil {
		return counts, err
	}
	if err := s.reader.Settle(ctx, target); err != nil {
		return counts, fmt.Errorf("dismissing tooltip: %w", err)
	}
	bars, err := chart.Bars(ctx, s.page, group, s.cfg.Order)
	if err != nil {
		return counts, err
	}
	logger.Debug("reading chart series", "bars", len(bars), "order", s.cfg.Order)

	seen := chart.NewSeenTexts()
	for _, bar := range bars {
		text, err := s.reader.Read(ctx, target, bar, seen)
		if err != nil {
			return counts, err
		}
		s.metrics.IncTooltipRead()

		rec, err := chart.ParseTooltip(text)
		if err != nil {
			if errors.Is(err, chart.ErrNotARecord) {
				logger.Debug("ignoring tooltip", "text", text)
				counts.Ignored++
				continue
			}
			return counts, err
		}
		rec.Country = country

		outcome, err := store.Append(rec)
		if err != nil {
			return counts, err
		}
		counts.record(rec.Kind, outcome)
		s.metrics.IncRecord(string(rec.Kind), outcome.String())

		if outcome == records.Skipped {
			logger.Debug("already in data, skipping bar", "date", rec.Date, "kind", rec.Kind)
		}
		if outcome == records.Stop {
			logger.Status("%s already in data, skipping this list.", rec.Date)
			break
		}
	}

	return counts, store.Flush()
}
