package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/records"
	"github.com/jmylchreest/chartscrape/internal/scrape"
)

// --- ExitCode Tests ---

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"generic", errors.New("boom"), 1},
		{"declined", scrape.ErrOverwriteDeclined, 1},
		{"missing input", scrape.ErrInputNotFound, 2},
		{"wrapped missing input", errors.Join(errors.New("ctx"), scrape.ErrInputNotFound), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// --- buildConfig Tests ---

func TestBuildConfig_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("input", "https://example.com/country/it")
	v.Set("output", "it.csv")

	cfg, err := buildConfig(v)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	want := scrape.DefaultConfig()
	want.Input = "https://example.com/country/it"
	want.Output = "it.csv"
	if cfg != want {
		t.Errorf("buildConfig() = %+v, want %+v", cfg, want)
	}
}

func TestBuildConfig_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("input", "countries.txt")
	v.Set("output", "data")
	v.Set("recursive", true)
	v.Set("reset_data", true)
	v.Set("on_duplicate", "skip")
	v.Set("order", "left-to-right")
	v.Set("ready_timeout", "0s")
	v.Set("tooltip_interval", "25ms")
	v.Set("max_scroll_retries", 5)
	v.Set("strip_selector", "")

	cfg, err := buildConfig(v)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	if !cfg.Recursive || !cfg.Reset {
		t.Error("expected recursive and reset")
	}
	if cfg.OnDuplicate != records.SkipDuplicate {
		t.Errorf("OnDuplicate = %q", cfg.OnDuplicate)
	}
	if cfg.Order != chart.LeftToRight {
		t.Errorf("Order = %q", cfg.Order)
	}
	if cfg.ReadyTimeout != 0 {
		t.Errorf("ReadyTimeout = %v, want 0", cfg.ReadyTimeout)
	}
	if cfg.TooltipInterval != 25*time.Millisecond {
		t.Errorf("TooltipInterval = %v", cfg.TooltipInterval)
	}
	if cfg.MaxScrollRetries != 5 {
		t.Errorf("MaxScrollRetries = %d", cfg.MaxScrollRetries)
	}
	if cfg.StripSelector != "" {
		t.Errorf("StripSelector = %q, want empty", cfg.StripSelector)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestBuildConfig_BadValues(t *testing.T) {
	for key, value := range map[string]string{"order": "diagonal", "on_duplicate": "overwrite"} {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, value)
			if _, err := buildConfig(v); err == nil {
				t.Errorf("buildConfig() with %s=%q should fail", key, value)
			}
		})
	}
}

// --- promptConfirm Tests ---

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"y", true},
		{"  y  \n", true},
		{"yes\n", false},
		{"Y\n", false},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := &bytes.Buffer{}
			got, err := promptConfirm(strings.NewReader(tt.input), out)("data/list.txt already exists, overwrite it?")
			if err != nil {
				t.Fatalf("confirm error = %v", err)
			}
			if got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.HasSuffix(out.String(), "y or [n]: ") {
				t.Errorf("unexpected prompt %q", out.String())
			}
		})
	}
}

// --- export Tests ---

func TestExport_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "italy.csv")
	if err := os.WriteFile(path, []byte("2020-03-01;1694;cases\n2020-03-01;29;deaths\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"export", "-q", "-i", path, "--format", "json"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export error = %v", err)
	}

	var got []records.Record
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(got) != 2 || got[0].Country != "italy" || got[1].Kind != records.Deaths {
		t.Errorf("unexpected records %+v", got)
	}
}

func TestExport_MissingInput(t *testing.T) {
	rootCmd.SetArgs([]string{"export", "-q", "-i", filepath.Join(t.TempDir(), "nope.csv")})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if ExitCode(err) != 2 {
		t.Errorf("ExitCode() = %d, want 2 (err = %v)", ExitCode(err), err)
	}
}

// resetExportFlags clears values left by earlier Execute calls; slice flags
// append once set.
func resetExportFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		if v, ok := exportCmd.Flags().Lookup("input").Value.(interface{ Replace([]string) error }); ok {
			_ = v.Replace(nil)
		}
		_ = exportCmd.Flags().Set("output", "")
	}
	reset()
	t.Cleanup(reset)
}

func TestExport_ToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "nauru.csv")
	if err := os.WriteFile(in, []byte(";0;cases\n;0;deaths\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "nauru.jsonl")
	resetExportFlags(t)

	rootCmd.SetArgs([]string{"export", "-q", "-i", in, "-o", outPath, "--format", "jsonl"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("export error = %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 {
		t.Errorf("expected 2 JSONL lines, got %q", data)
	}
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestCloseInto(t *testing.T) {
	closeErr := errors.New("disk full")
	earlier := errors.New("write failed")

	tests := []struct {
		name     string
		prior    error
		closeErr error
		want     error
	}{
		{name: "clean", prior: nil, closeErr: nil, want: nil},
		{name: "close error reported", prior: nil, closeErr: closeErr, want: closeErr},
		{name: "earlier error kept", prior: earlier, closeErr: closeErr, want: earlier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prior
			closeInto(&err, closer{err: tt.closeErr}, "out.json")
			if tt.want == nil {
				if err != nil {
					t.Errorf("closeInto() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("closeInto() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScreenshotName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://covid19.who.int/region/euro/country/it", "covid19.who.int_region_euro_country_it"},
		{"http://example.com/a?b=c#d", "example.com_a_b_c_d"},
		{"https://example.com/", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := screenshotName(tt.url); got != tt.want {
				t.Errorf("screenshotName(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
