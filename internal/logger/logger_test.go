package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger restores defaults for test isolation
func resetLogger() {
	Init(Options{})
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
		wantError bool
	}{
		{name: "default", opts: Options{}, wantInfo: true, wantError: true},
		{name: "debug", opts: Options{Debug: true}, wantDebug: true, wantInfo: true, wantError: true},
		{name: "quiet", opts: Options{Quiet: true}, wantError: true},
		{name: "quiet beats debug", opts: Options{Quiet: true, Debug: true}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.opts.Output = buf
			tt.opts.Status = &bytes.Buffer{}
			Init(tt.opts)
			defer resetLogger()

			Debug("debug line")
			Info("info line")
			Error("error line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out, "error line"); got != tt.wantError {
				t.Errorf("error logged = %v, want %v", got, tt.wantError)
			}
		})
	}
}

func TestInit_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("page ready", "groups", 2)

	out := buf.String()
	if !strings.Contains(out, "page ready") {
		t.Error("text output should contain the message")
	}
	if !strings.Contains(out, "INFO") {
		t.Error("text output should contain the level")
	}
	if !strings.Contains(out, "groups") || !strings.Contains(out, "2") {
		t.Error("text output should contain attributes")
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Warn("scroll retry", "attempt", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "scroll retry" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("unexpected level %v", entry["level"])
	}
	if entry["attempt"] != float64(3) {
		t.Errorf("unexpected attempt %v", entry["attempt"])
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	custom := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Init(Options{Logger: custom})
	defer resetLogger()

	Debug("through custom")
	if !strings.Contains(buf.String(), "through custom") {
		t.Error("custom logger should receive messages")
	}
}

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("url", "https://example.com").Info("scraping")

	out := buf.String()
	if !strings.Contains(out, "scraping") || !strings.Contains(out, "https://example.com") {
		t.Errorf("expected message and attribute, got %q", out)
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "debug ctx")
	WarnContext(ctx, "warn ctx")
	ErrorContext(ctx, "error ctx")

	for _, msg := range []string{"debug ctx", "warn ctx", "error ctx"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("expected %q in output", msg)
		}
	}
}

// --- Status Tests ---

func TestStatus_Prefix(t *testing.T) {
	status := &bytes.Buffer{}
	Init(Options{Output: &bytes.Buffer{}, Status: status})
	defer resetLogger()

	Status("retrieving data from %s", "https://example.com")

	if got := status.String(); got != " > retrieving data from https://example.com\n" {
		t.Errorf("unexpected status line %q", got)
	}
}

func TestStatus_SuppressedWhenQuiet(t *testing.T) {
	status := &bytes.Buffer{}
	Init(Options{Quiet: true, Output: &bytes.Buffer{}, Status: status})
	defer resetLogger()

	Status("done")

	if status.Len() != 0 {
		t.Errorf("quiet mode should suppress status lines, got %q", status.String())
	}
}
