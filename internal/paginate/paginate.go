// Package paginate asks the extraction provider for additional page
// URLs continuing a listing sequence, with regex fallbacks for load-more
// and infinite-scroll markers. Detection is best effort: any provider
// failure yields an empty result, never an error that would abort the
// scrape.
package paginate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"sjsage522/llmscraper/config"
	"sjsage522/llmscraper/internal/llm"
	"sjsage522/llmscraper/logger"
)

// Result is the outcome of one detection call.
type Result struct {
	PageURLs []string  `json:"page_urls"`
	Usage    llm.Usage `json:"usage"`
	Cost     float64   `json:"cost"`
}

type providerAnswer struct {
	PageURLs []string `json:"page_urls"`
}

var (
	loadMoreRe = regexp.MustCompile(`(?is)href=["'](.*?)["'][^>]*>\s*load more\s*</a>`)
	dataURLRe  = regexp.MustCompile(`(?i)data-url=["'](.*?)["']`)
)

// Detector runs pagination detection against a provider.
type Detector struct {
	provider llm.Provider
	rate     config.ModelRate
}

// NewDetector creates a detector that bills usage at the given rate.
func NewDetector(provider llm.Provider, rate config.ModelRate) *Detector {
	return &Detector{provider: provider, rate: rate}
}

// Detect returns the absolute same-domain page URLs found in content.
// The hint is free text from the operator describing how the site
// paginates; it may be empty.
func (d *Detector) Detect(ctx context.Context, pageURL, hint, content string) (Result, error) {
	log := logger.ForExtractor(d.provider.Name())

	answer, usage, err := d.provider.Extract(ctx, systemMessage(pageURL, hint), content)
	if err != nil {
		log.Warn().Err(err).Str("url", pageURL).Msg("Pagination detection failed, continuing without extra pages")
		return Result{}, nil
	}

	var parsed providerAnswer
	if uerr := json.Unmarshal([]byte(llm.RepairJSON(answer)), &parsed); uerr != nil {
		log.Warn().Str("url", pageURL).Msg("Pagination answer was not parseable JSON")
	}

	candidates := append(parsed.PageURLs, fallbackURLs(content)...)

	base, perr := url.Parse(pageURL)
	if perr != nil {
		return Result{Usage: usage, Cost: llm.Cost(usage, d.rate)}, nil
	}

	seen := map[string]bool{pageURL: true}
	var accepted []string
	for _, raw := range candidates {
		resolved, ok := resolve(base, raw)
		if !ok || seen[resolved] {
			continue
		}
		seen[resolved] = true
		accepted = append(accepted, resolved)
	}

	return Result{
		PageURLs: accepted,
		Usage:    usage,
		Cost:     llm.Cost(usage, d.rate),
	}, nil
}

// resolve makes raw absolute against base and rejects it when it lands
// on a foreign domain or is not an http(s) URL.
func resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
		return "", false
	}
	return abs.String(), true
}

// fallbackURLs scans raw content for load-more anchors and data-url
// attributes that mark infinite-scroll endpoints.
func fallbackURLs(content string) []string {
	var out []string
	for _, m := range loadMoreRe.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	for _, m := range dataURLRe.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}

func systemMessage(pageURL, hint string) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that extracts pagination URLs from markdown content of websites. ")
	sb.WriteString("Your task is to identify URLs that lead to additional pages of the same listing sequence.\n\n")
	sb.WriteString("Rules for URL handling:\n")
	fmt.Fprintf(&sb, "1. The current page URL is %s.\n", pageURL)
	sb.WriteString("2. Resolve root-relative paths (starting with \"/\") against the scheme and host of the current page URL.\n")
	sb.WriteString("3. Resolve path-relative paths against the current page's directory.\n")
	sb.WriteString("4. Preserve query parameters exactly as they appear.\n")
	sb.WriteString("5. Return only absolute URLs.\n")
	sb.WriteString("6. Prefer URLs on the same domain as the current page; exclude obvious navigation, login and social links.\n\n")
	if strings.TrimSpace(hint) != "" {
		fmt.Fprintf(&sb, "Additional guidance from the operator: %s\n\n", strings.TrimSpace(hint))
	}
	sb.WriteString("Respond with a JSON object of the exact form {\"page_urls\": [\"...\"]} and nothing else. ")
	sb.WriteString("If no pagination exists, respond with {\"page_urls\": []}.")
	return sb.String()
}
