// Package fetcher loads target pages and walks bounded pagination
// chains. A Driver abstracts the page-loading mechanism so the session
// logic can be tested without a browser.
package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sjsage522/llmscraper/config"
	"sjsage522/llmscraper/logger"
	scrapererr "sjsage522/llmscraper/pkg/errors"
	"sjsage522/llmscraper/services/cache"
)

// PageResult is the markup captured from one page of a pagination
// chain. Page numbering starts at 1.
type PageResult struct {
	URL  string
	HTML string
	Page int
}

// Driver drives one page-loading session against a single URL.
type Driver interface {
	// Load navigates to the URL and returns the settled markup.
	Load(ctx context.Context, url string) (string, error)

	// NextPage tries to advance to the next page of the current chain.
	// found is false when no next control matched, which ends the chain
	// without error.
	NextPage(ctx context.Context) (html string, found bool, err error)

	// Close releases the session
	Close() error
}

// Fetcher fetches pagination chains with a per-host block gate. After a
// rate-limit response the host is blocked for the configured time and
// subsequent fetches fail fast.
type Fetcher struct {
	newDriver func() (Driver, error)
	cacheSvc  cache.CacheService
	blockTime time.Duration
}

// New creates a fetcher from the configuration. With UseBrowser off a
// plain HTTP driver is used and pagination chains stop at page 1.
func New(cfg *config.Config, cacheSvc cache.CacheService) *Fetcher {
	f := &Fetcher{cacheSvc: cacheSvc, blockTime: cfg.BlockTime}
	if cfg.UseBrowser {
		navTimeout, settleDelay := cfg.NavTimeout, cfg.SettleDelay
		f.newDriver = func() (Driver, error) {
			return NewChromeDriver(navTimeout, settleDelay), nil
		}
	} else {
		f.newDriver = func() (Driver, error) {
			return &HTTPDriver{}, nil
		}
	}
	return f
}

// NewWithDriver creates a fetcher around an externally built driver
func NewWithDriver(newDriver func() (Driver, error), cacheSvc cache.CacheService, blockTime time.Duration) *Fetcher {
	return &Fetcher{newDriver: newDriver, cacheSvc: cacheSvc, blockTime: blockTime}
}

// Fetch loads pageURL and follows next controls up to maxPages pages.
// A failed first load is an error; a failure while advancing ends the
// chain gracefully with the pages collected so far.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, maxPages int) ([]PageResult, error) {
	log := logger.ForFetcher()

	blockKey := f.blockKey(pageURL)
	if f.cacheSvc != nil && blockKey != "" {
		if _, err := f.cacheSvc.Get(blockKey); err == nil {
			return nil, scrapererr.NewFetch(pageURL, fmt.Sprintf("host blocked for %v after an earlier rate limit", f.blockTime), nil)
		}
	}

	driver, err := f.newDriver()
	if err != nil {
		return nil, scrapererr.NewFetch(pageURL, "failed to start page driver", err)
	}
	defer driver.Close()

	html, err := driver.Load(ctx, pageURL)
	if err != nil {
		if f.cacheSvc != nil && blockKey != "" && strings.Contains(err.Error(), "rate limited") {
			if setErr := f.cacheSvc.Set(blockKey, []byte(fmt.Sprintf("%d", int(f.blockTime.Seconds()))), f.blockTime); setErr != nil {
				log.Warn().Err(setErr).Str("key", blockKey).Msg("Failed to record fetch block")
			}
		}
		return nil, scrapererr.NewFetch(pageURL, "failed to load page", err)
	}

	pages := []PageResult{{URL: pageURL, HTML: html, Page: 1}}
	for len(pages) < maxPages {
		nextHTML, found, err := driver.NextPage(ctx)
		if err != nil {
			log.Warn().Err(err).Str("url", pageURL).Int("page", len(pages)).
				Msg("Pagination stopped early")
			break
		}
		if !found {
			break
		}
		pages = append(pages, PageResult{URL: pageURL, HTML: nextHTML, Page: len(pages) + 1})
	}

	log.Debug().Str("url", pageURL).Int("pages", len(pages)).Msg("Fetch complete")
	return pages, nil
}

// blockKey derives the per-host gate key for a URL
func (f *Fetcher) blockKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return "fetch_block:" + u.Hostname()
}
