package browser

import (
	"os/exec"
	"path/filepath"

	"github.com/jmylchreest/chartscrape/internal/logger"
)

// Chrome/Chromium binaries, by name for PATH lookup or by absolute path.
var chromeBinaries = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath returns the first Chrome binary found, or "" to leave the
// choice to chromedp.
func FindChromePath() string {
	for _, name := range chromeBinaries {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		logger.Debug("found Chrome binary", "name", name, "path", path)
		return path
	}
	return ""
}
