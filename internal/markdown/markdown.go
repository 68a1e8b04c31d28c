// Package markdown converts raw page markup into the link-preserving
// markdown representation handed to the extraction provider.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
)

var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// Normalize strips boilerplate and converts markup to markdown.
// Header and footer elements are removed wholesale before conversion;
// this is a best-effort heuristic, not a readability guarantee.
// When baseURL is non-empty, relative links are rewritten to absolute
// form. Deterministic for identical input.
func Normalize(html, baseURL string) (string, error) {
	cleaned, err := stripBoilerplate(html)
	if err != nil {
		return "", fmt.Errorf("failed to clean HTML: %w", err)
	}

	var opts []converter.ConvertOptionFunc
	if baseURL != "" {
		opts = append(opts, converter.WithDomain(baseURL))
	}

	md, err := htmltomarkdown.ConvertString(cleaned, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return md, nil
}

// StripURLs removes every absolute URL from a markdown document. Used
// for the audit copy written next to the raw capture, where link noise
// hides the extractable text.
func StripURLs(md string) string {
	return urlPattern.ReplaceAllString(md, "")
}

// stripBoilerplate removes header and footer tags and their content.
func stripBoilerplate(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("header, footer").Remove()

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	return out, nil
}
