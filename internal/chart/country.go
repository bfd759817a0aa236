package chart

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// navAnchorText is the breadcrumb link next to the country name.
const navAnchorText = "Global"

// ResolveCountry returns the country file name for the loaded page, e.g.
// "united_states_of_america.csv". The name is read from the breadcrumb:
// the second span beside the "Global" link.
func ResolveCountry(ctx context.Context, page Page) (string, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("reading page markup: %w", err)
	}
	return CountryFromHTML(html)
}

// CountryFromHTML resolves the country file name from page markup.
func CountryFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	anchor := doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == navAnchorText
	}).First()
	if anchor.Length() == 0 {
		return "", fmt.Errorf("%w: %q navigation link", ErrElementNotFound, navAnchorText)
	}

	span := anchor.Parent().Parent().ChildrenFiltered("span").Eq(1)
	if span.Length() == 0 {
		return "", fmt.Errorf("%w: country name beside %q link", ErrElementNotFound, navAnchorText)
	}

	name := strings.TrimSpace(span.Text())
	if name == "" {
		return "", fmt.Errorf("%w: empty country name", ErrElementNotFound)
	}
	return CountryFileName(name), nil
}

// CountryFileName maps a display name to its file name.
func CountryFileName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_")) + ".csv"
}
