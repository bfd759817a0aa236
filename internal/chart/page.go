// Package chart drives a rendered dashboard chart through a browser page:
// it waits for the page to finish rendering, walks the chart bars in a
// stable order and reads the tooltip each bar produces on hover.
package chart

import (
	"context"
	"errors"
)

// Handle is an opaque reference to an element of the loaded page.
// Handles are only valid until the next navigation.
type Handle string

// Document is the handle of the page document itself.
const Document Handle = ""

// Page is the browser capability the scraper drives. Implementations wrap a
// real browser tab; tests use charttest.Page.
type Page interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error

	// Query returns the elements matching a CSS selector below root, in
	// document order. Selectors may use :scope.
	Query(ctx context.Context, root Handle, selector string) ([]Handle, error)

	// Ancestor walks levels parents up from h.
	Ancestor(ctx context.Context, h Handle, levels int) (Handle, error)

	// Attr returns an attribute value, or "" when the attribute is absent.
	Attr(ctx context.Context, h Handle, name string) (string, error)

	// Text returns the rendered text of h.
	Text(ctx context.Context, h Handle) (string, error)

	// MoveTo moves the pointer to (x, y) relative to the top-left corner of
	// h. It fails with ErrOutOfBounds when the point is outside the viewport.
	MoveTo(ctx context.Context, h Handle, x, y float64) error

	// ScrollIntoView scrolls h into the viewport.
	ScrollIntoView(ctx context.Context, h Handle) error

	// Exec runs a script in the page and discards its result.
	Exec(ctx context.Context, script string) error

	// HTML returns a snapshot of the current document markup.
	HTML(ctx context.Context) (string, error)
}

// Error types for distinguishing failure reasons.
var (
	// ErrElementNotFound indicates a required element is absent from the page.
	ErrElementNotFound = errors.New("element not found")
	// ErrOutOfBounds indicates a pointer target lies outside the viewport.
	ErrOutOfBounds = errors.New("pointer target out of bounds")
	// ErrPollTimeout indicates a polling wait ran past its timeout.
	ErrPollTimeout = errors.New("poll timed out")
	// ErrScrollRetriesExceeded indicates an out-of-bounds target could not be
	// brought into view within the configured number of scrolls.
	ErrScrollRetriesExceeded = errors.New("scroll retries exceeded")
)
