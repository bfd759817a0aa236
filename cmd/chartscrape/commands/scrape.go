package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/chartscrape/cmd/chartscrape/browser"
	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/logger"
	"github.com/jmylchreest/chartscrape/internal/metrics"
	"github.com/jmylchreest/chartscrape/internal/progress"
	"github.com/jmylchreest/chartscrape/internal/records"
	"github.com/jmylchreest/chartscrape/internal/scrape"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Read chart tooltips into per-country files",
	Long: `Scrape one dashboard page, or every page of a URL list, by hovering
over each chart bar and appending "date;count;kind" lines to the
country's file.

Without --reset-data a series stops at the first date already on disk
(or only that bar is skipped with --on-duplicate skip).

Examples:
  # Single page
  chartscrape scrape -i "https://covid19.who.int/region/euro/country/it" -o data/italy.csv

  # URL list; writes data/<country>.csv and the manifest data/countries.txt
  chartscrape scrape -r -i countries.txt -o data/

  # Visible browser, slower tooltip polling
  chartscrape scrape -i "$URL" -o out.csv --headless=false --tooltip-interval 50ms`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	def := scrape.DefaultConfig()

	// Inputs and outputs
	flags.StringP("input", "i", "", "page URL, or URL list file with -r (required)")
	flags.StringP("output", "o", "", "country file, or output directory with -r (required)")
	flags.BoolP("recursive", "r", false, "treat --input as a URL list and --output as a directory")
	flags.String("metrics-file", "", "write run metrics to this node_exporter textfile")

	// Merge behaviour
	flags.Bool("reset-data", false, "write rows already on disk again and overwrite the manifest without asking")
	flags.String("on-duplicate", string(def.OnDuplicate), "without --reset-data: stop-list or skip")
	flags.String("order", string(def.Order), "bar order: right-to-left or left-to-right")

	// Waits
	flags.Duration("ready-interval", def.ReadyInterval, "poll interval while waiting for the chart")
	flags.Duration("ready-timeout", def.ReadyTimeout, "give up on a page after this long (0 = wait forever)")
	flags.Duration("tooltip-interval", def.TooltipInterval, "poll interval while waiting for a tooltip")
	flags.Duration("tooltip-timeout", def.TooltipTimeout, "give up on a tooltip after this long (0 = wait forever)")
	flags.Int("max-scroll-retries", def.MaxScrollRetries, "scroll-and-retry attempts for an off-screen pointer target (at least 1)")
	flags.String("strip-selector", def.StripSelector, "CSS selector of the element removed before hovering (empty = none)")

	// Browser
	flags.Bool("headless", true, "run Chrome without a window")
	flags.Duration("browser-timeout", browser.DefaultConfig().Timeout, "timeout for a single browser operation")
	flags.String("chrome-path", "", "Chrome binary (default: search PATH)")
	flags.String("screenshot-dir", "", "save a screenshot of every page that fails into this directory")

	_ = scrapeCmd.MarkFlagRequired("input")
	_ = scrapeCmd.MarkFlagRequired("output")

	// Bind to viper
	for _, name := range []string{
		"input", "output", "recursive", "metrics-file",
		"reset-data", "on-duplicate", "order",
		"ready-interval", "ready-timeout", "tooltip-interval", "tooltip-timeout",
		"max-scroll-retries", "strip-selector",
		"headless", "browser-timeout", "chrome-path", "screenshot-dir",
	} {
		_ = viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Recursive {
		if _, err := os.Stat(cfg.Input); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", scrape.ErrInputNotFound, cfg.Input)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bcfg := browser.DefaultConfig()
	bcfg.Headless = viper.GetBool("headless")
	bcfg.Timeout = viper.GetDuration("browser_timeout")
	bcfg.ExecPath = viper.GetString("chrome_path")

	logger.Status("setting up browser...")
	session, err := browser.NewSession(bcfg)
	if err != nil {
		logger.Status("problem setting up browser!")
		return err
	}
	defer func() { _ = session.Close() }()
	logger.Status("browser set up!")

	var m *metrics.Metrics
	metricsFile := viper.GetString("metrics_file")
	if metricsFile != "" {
		m = metrics.New()
	}

	opts := []scrape.Option{
		scrape.WithMetrics(m),
		scrape.WithProgress(progress.New(viper.GetBool("quiet"))),
		scrape.WithConfirm(promptConfirm(os.Stdin, os.Stdout)),
	}
	if dir := viper.GetString("screenshot_dir"); dir != "" {
		opts = append(opts, scrape.WithFailureHook(screenshotOnFailure(session, dir)))
	}
	s, err := scrape.New(cfg, session, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	summary, runErr := s.Run(ctx)

	if err := m.WriteTextfile(metricsFile); err != nil {
		logger.Warn("writing metrics failed", "path", metricsFile, "error", err)
	}

	for _, f := range summary.Failed {
		logger.Warn("page not scraped", "url", f.URL, "error", f.Err)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("run complete",
		"pages", summary.Processed(),
		"failed", len(summary.Failed),
		"lines", summary.Counts.Lines(),
		"duration", time.Since(start).Round(time.Millisecond))
	logger.Status("%s", summary)
	logger.Status("done retrieving data")
	return nil
}

// buildConfig reads the scrape settings from v.
func buildConfig(v *viper.Viper) (scrape.Config, error) {
	cfg := scrape.DefaultConfig()
	cfg.Input = v.GetString("input")
	cfg.Output = v.GetString("output")
	cfg.Recursive = v.GetBool("recursive")
	cfg.Reset = v.GetBool("reset_data")

	if s := v.GetString("on_duplicate"); s != "" {
		p, err := records.ParseDuplicatePolicy(s)
		if err != nil {
			return cfg, err
		}
		cfg.OnDuplicate = p
	}
	if s := v.GetString("order"); s != "" {
		o, err := chart.ParseOrder(s)
		if err != nil {
			return cfg, err
		}
		cfg.Order = o
	}

	if v.IsSet("ready_interval") {
		cfg.ReadyInterval = v.GetDuration("ready_interval")
	}
	if v.IsSet("ready_timeout") {
		cfg.ReadyTimeout = v.GetDuration("ready_timeout")
	}
	if v.IsSet("tooltip_interval") {
		cfg.TooltipInterval = v.GetDuration("tooltip_interval")
	}
	if v.IsSet("tooltip_timeout") {
		cfg.TooltipTimeout = v.GetDuration("tooltip_timeout")
	}
	if v.IsSet("max_scroll_retries") {
		cfg.MaxScrollRetries = v.GetInt("max_scroll_retries")
	}
	if v.IsSet("strip_selector") {
		cfg.StripSelector = v.GetString("strip_selector")
	}
	return cfg, nil
}

// screenshotOnFailure saves the failed page as <dir>/<n>-<host-and-path>.png.
func screenshotOnFailure(session *browser.Session, dir string) func(string, error) {
	n := 0
	return func(url string, _ error) {
		n++
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("cannot create screenshot directory", "dir", dir, "error", err)
			return
		}
		path := filepath.Join(dir, fmt.Sprintf("%03d-%s.png", n, screenshotName(url)))
		if err := session.SaveScreenshot(path); err != nil {
			logger.Warn("screenshot failed", "url", url, "error", err)
			return
		}
		logger.Debug("debug screenshot saved", "url", url, "path", path)
	}
}

// screenshotName reduces a URL to a file-name-safe slug.
func screenshotName(url string) string {
	url = strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, url)
	if len(slug) > 80 {
		slug = slug[:80]
	}
	return strings.Trim(slug, "_")
}

// promptConfirm asks on out and accepts only "y" read from in.
func promptConfirm(in io.Reader, out io.Writer) scrape.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(question string) (bool, error) {
		fmt.Fprintf(out, " > %s\ny or [n]: ", question)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		return strings.TrimSpace(line) == "y", nil
	}
}
