// Package scraper runs one scrape batch: fetch every target URL,
// extract listings through the configured provider and hand the results
// to the store and the publisher. URLs are processed strictly one after
// another; there is no fan-out.
package scraper

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"time"

	"sjsage522/llmscraper/config"
	"sjsage522/llmscraper/internal/artifacts"
	"sjsage522/llmscraper/internal/fetcher"
	"sjsage522/llmscraper/internal/listing"
	"sjsage522/llmscraper/internal/llm"
	"sjsage522/llmscraper/internal/markdown"
	"sjsage522/llmscraper/internal/paginate"
	"sjsage522/llmscraper/internal/schema"
	"sjsage522/llmscraper/logger"
	"sjsage522/llmscraper/services/publisher"
	"sjsage522/llmscraper/services/store"
)

// PublishKey is the stream field listings are published under
const PublishKey = "b64_listings"

// Report summarizes one batch run for the operator.
type Report struct {
	URLsProcessed int
	URLsFailed    int
	PagesFetched  int
	ListingsFound int
	RowsInserted  int
	Usage         llm.Usage
	Cost          float64
}

// Session owns one batch invocation. Not safe for concurrent use.
type Session struct {
	cfg      *config.Config
	schema   *schema.ListingSchema
	provider llm.Provider
	detector *paginate.Detector
	fetcher  *fetcher.Fetcher
	store    *store.Store
	pub      publisher.Publisher
	rate     config.ModelRate

	// visited guards pagination-detected URLs against re-fetching
	// across targets within the batch.
	visited map[string]bool
}

// NewSession wires a batch session from its collaborators. The
// publisher may be nil when no downstream consumer is configured.
func NewSession(
	cfg *config.Config,
	sch *schema.ListingSchema,
	provider llm.Provider,
	f *fetcher.Fetcher,
	st *store.Store,
	pub publisher.Publisher,
) *Session {
	rate := cfg.Pricing[llm.PriceKey(provider)]
	return &Session{
		cfg:      cfg,
		schema:   sch,
		provider: provider,
		detector: paginate.NewDetector(provider, rate),
		fetcher:  f,
		store:    st,
		pub:      pub,
		rate:     rate,
		visited:  make(map[string]bool),
	}
}

// Run processes every configured URL in input order. A failure on one
// URL is logged and counted; the batch continues with the next.
func (s *Session) Run(ctx context.Context) *Report {
	log := logger.ForScraper()
	report := &Report{}

	for _, target := range s.cfg.URLs {
		stats, err := s.processURL(ctx, target)
		report.PagesFetched += stats.pages
		report.ListingsFound += stats.listings
		report.RowsInserted += stats.inserted
		report.Usage = report.Usage.Add(stats.usage)
		report.Cost += stats.cost
		if err != nil {
			report.URLsFailed++
			log.Error().Err(err).Str("url", target).Msg("URL processing failed")
			continue
		}
		report.URLsProcessed++
	}

	if s.pub != nil {
		if err := s.pub.TrimStreams(); err != nil {
			log.Warn().Err(err).Msg("Failed to trim publisher streams")
		}
	}

	log.Info().
		Int("urls", report.URLsProcessed).
		Int("failed", report.URLsFailed).
		Int("pages", report.PagesFetched).
		Int("listings", report.ListingsFound).
		Int("inserted", report.RowsInserted).
		Int("input_tokens", report.Usage.InputTokens).
		Int("output_tokens", report.Usage.OutputTokens).
		Float64("cost_usd", report.Cost).
		Msg("Batch complete")
	return report
}

type urlStats struct {
	pages    int
	listings int
	inserted int
	usage    llm.Usage
	cost     float64
}

func (s *Session) processURL(ctx context.Context, target string) (urlStats, error) {
	log := logger.ForScraper()
	var stats urlStats

	s.visited[target] = true

	pages, err := s.fetcher.Fetch(ctx, target, s.cfg.MaxPages)
	if err != nil {
		return stats, err
	}

	arts, err := artifacts.NewSession(s.cfg.OutputDir, target, time.Now())
	if err != nil {
		return stats, err
	}

	contents := make([]string, 0, len(pages))
	for _, page := range pages {
		md, err := markdown.Normalize(page.HTML, target)
		if err != nil {
			return stats, err
		}
		contents = append(contents, md)
	}

	// Pagination detection runs on the first page only and fills the
	// remaining page budget with detected same-domain URLs.
	if s.cfg.Pagination && len(contents) > 0 {
		res, _ := s.detector.Detect(ctx, target, s.cfg.PaginationHint, contents[0])
		stats.usage = stats.usage.Add(res.Usage)
		stats.cost += res.Cost
		for _, extra := range res.PageURLs {
			if len(contents) >= s.cfg.MaxPages {
				break
			}
			if s.visited[extra] {
				continue
			}
			s.visited[extra] = true

			extraPages, err := s.fetcher.Fetch(ctx, extra, 1)
			if err != nil {
				log.Warn().Err(err).Str("url", extra).Msg("Skipping detected page")
				continue
			}
			md, err := markdown.Normalize(extraPages[0].HTML, extra)
			if err != nil {
				log.Warn().Err(err).Str("url", extra).Msg("Skipping unconvertible page")
				continue
			}
			contents = append(contents, md)
		}
	}
	stats.pages = len(contents)

	deduper := listing.NewDeduper()
	system := s.schema.SystemMessage()
	var collected []listing.Listing

	for i, md := range contents {
		pageNum := i + 1
		if err := arts.WriteRawMarkdown(pageNum, md); err != nil {
			return stats, err
		}
		if err := arts.WriteCleanedMarkdown(pageNum, markdown.StripURLs(md)); err != nil {
			return stats, err
		}

		answer, usage, err := s.provider.Extract(ctx, system, llm.TrimContent(md, s.cfg.MaxContentRunes))
		stats.usage = stats.usage.Add(usage)
		stats.cost += llm.Cost(usage, s.rate)
		if err != nil {
			return stats, err
		}

		items := deduper.Filter(listing.Normalize(llm.RepairJSON(answer), s.schema))
		if err := arts.WriteListings(pageNum, items, s.schema.Columns()); err != nil {
			return stats, err
		}
		collected = append(collected, items...)
	}
	stats.listings = len(collected)

	if err := s.persist(target, arts, collected, &stats); err != nil {
		return stats, err
	}

	s.publish(target, collected)
	return stats, nil
}

func (s *Session) persist(target string, arts *artifacts.Session, collected []listing.Listing, stats *urlStats) error {
	uniqueName := filepath.Base(arts.Dir)

	rawID, err := s.store.InsertRawCapture(uniqueName, target, collected)
	if err != nil {
		return err
	}

	inserted, err := s.store.UpsertListings(uniqueName, target, rawID, collected)
	if err != nil {
		return err
	}
	stats.inserted = inserted

	return s.store.RecordWebsiteInfo(target, siteName(target), s.schema.Fields())
}

// publish pushes the collected listings downstream; failures are logged
// and never fail the URL since persistence already succeeded.
func (s *Session) publish(target string, collected []listing.Listing) {
	if s.pub == nil || len(collected) == 0 {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"url":      target,
		"listings": collected,
	})
	if err != nil {
		logger.ForPublisher().Warn().Err(err).Str("url", target).Msg("Failed to encode listings")
		return
	}
	if err := s.pub.Publish(PublishKey, payload); err != nil {
		logger.ForPublisher().Warn().Err(err).Str("url", target).Msg("Failed to publish listings")
	}
}

// siteName derives the bookkeeping name for a target from its host
func siteName(target string) string {
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return target
}
