package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultStripSelector matches the dashboard header that overlaps the charts.
const DefaultStripSelector = "div#root > div > div"

// StripDecorations removes the first element matching selector. It only
// changes what is rendered, never what is read. An empty selector is a no-op.
func StripDecorations(ctx context.Context, page Page, selector string) error {
	if selector == "" {
		return nil
	}
	quoted, err := jsString(selector)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); if (el) { el.remove(); } })()`, quoted)
	return page.Exec(ctx, script)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
