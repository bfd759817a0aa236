// Package browser implements chart.Page on a Chrome tab driven by chromedp.
package browser

import (
	"time"
)

// Config holds browser launch settings.
type Config struct {
	ExecPath  string        // Chrome binary; found automatically when empty
	Headless  bool          // Run without a window
	Timeout   time.Duration // Upper bound for a single browser operation
	UserAgent string
	Width     int // Window size; the chart layout depends on it
	Height    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:  true,
		Timeout:   30 * time.Second,
		UserAgent: defaultUserAgent,
		Width:     1920,
		Height:    1080,
	}
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
