package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/llmscraper/config"
	"sjsage522/llmscraper/internal/fetcher"
	"sjsage522/llmscraper/internal/llm"
	"sjsage522/llmscraper/internal/schema"
	"sjsage522/llmscraper/services/store"
)

// stubProvider answers extraction and pagination calls separately
type stubProvider struct {
	extractAnswer  string
	paginateAnswer string
	extractErr     error
	extractCalls   int
}

func (p *stubProvider) Extract(ctx context.Context, system, user string) (string, llm.Usage, error) {
	if strings.Contains(system, "pagination URLs") {
		return p.paginateAnswer, llm.Usage{InputTokens: 5, OutputTokens: 1}, nil
	}
	p.extractCalls++
	if p.extractErr != nil {
		return "", llm.Usage{}, p.extractErr
	}
	return p.extractAnswer, llm.Usage{InputTokens: 10, OutputTokens: 2}, nil
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-model" }

type fakeDriver struct {
	pages  []string
	cursor int
}

func (d *fakeDriver) Load(ctx context.Context, url string) (string, error) {
	d.cursor = 1
	return d.pages[0], nil
}

func (d *fakeDriver) NextPage(ctx context.Context) (string, bool, error) {
	if d.cursor >= len(d.pages) {
		return "", false, nil
	}
	html := d.pages[d.cursor]
	d.cursor++
	return html, true, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakePublisher struct {
	published [][]byte
	trimmed   bool
}

func (p *fakePublisher) Publish(key string, message []byte) error {
	p.published = append(p.published, message)
	return nil
}

func (p *fakePublisher) TrimStreams() error {
	p.trimmed = true
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func testConfig(t *testing.T, urls ...string) *config.Config {
	t.Helper()
	return &config.Config{
		URLs:      urls,
		MaxPages:  5,
		OutputDir: t.TempDir(),
		Pricing: map[string]config.ModelRate{
			"stub/stub-model": {InputPerToken: 0.001, OutputPerToken: 0.002},
		},
	}
}

func newTestSession(t *testing.T, cfg *config.Config, p llm.Provider, d fetcher.Driver, pub *fakePublisher) (*Session, *store.Store) {
	t.Helper()
	sch, err := schema.New([]string{"Title", "Deadline"})
	require.NoError(t, err)

	st, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := fetcher.NewWithDriver(func() (fetcher.Driver, error) { return d, nil }, nil, time.Minute)

	if pub == nil {
		return NewSession(cfg, sch, p, f, st, nil), st
	}
	return NewSession(cfg, sch, p, f, st, pub), st
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, "https://site.example/tenders")
	provider := &stubProvider{
		extractAnswer: `{"listings":[{"Title":"RFP-1","Deadline":"2025-01-01"}]}`,
	}
	driver := &fakeDriver{pages: []string{"<main><p>RFP-1 details</p></main>"}}
	pub := &fakePublisher{}

	sess, st := newTestSession(t, cfg, provider, driver, pub)
	report := sess.Run(context.Background())

	assert.Equal(t, 1, report.URLsProcessed)
	assert.Zero(t, report.URLsFailed)
	assert.Equal(t, 1, report.PagesFetched)
	assert.Equal(t, 1, report.ListingsFound)
	assert.Equal(t, 1, report.RowsInserted)
	assert.Equal(t, llm.Usage{InputTokens: 10, OutputTokens: 2}, report.Usage)
	assert.InDelta(t, 10*0.001+2*0.002, report.Cost, 1e-9)

	count, err := st.ListingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, pub.published, 1)
	assert.Contains(t, string(pub.published[0]), "RFP-1")
	assert.True(t, pub.trimmed)
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := testConfig(t, "https://site.example/tenders")
	provider := &stubProvider{extractAnswer: `{"listings":[]}`}
	driver := &fakeDriver{pages: []string{"<p>one</p>", "<p>two</p>"}}

	sess, _ := newTestSession(t, cfg, provider, driver, nil)
	report := sess.Run(context.Background())
	assert.Equal(t, 2, report.PagesFetched)

	dirs, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, dirs, 1)

	sessionDir := filepath.Join(cfg.OutputDir, dirs[0].Name())
	for _, name := range []string{
		"rawData_1.md", "rawData_1_cleaned.md", "sorted_data_1.json", "sorted_data_1.csv",
		"rawData_2.md", "rawData_2_cleaned.md", "sorted_data_2.json", "sorted_data_2.csv",
	} {
		_, err := os.Stat(filepath.Join(sessionDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunPaginationDetectionFillsPageBudget(t *testing.T) {
	cfg := testConfig(t, "https://site.example/tenders")
	cfg.Pagination = true
	cfg.MaxPages = 3
	provider := &stubProvider{
		extractAnswer:  `{"listings":[]}`,
		paginateAnswer: `{"page_urls":["/page/2","/page/3","/page/4"]}`,
	}
	driver := &fakeDriver{pages: []string{"<p>page</p>"}}

	sess, _ := newTestSession(t, cfg, provider, driver, nil)
	report := sess.Run(context.Background())

	// One click-chain page plus two detected pages; the third detected
	// URL exceeds the page budget.
	assert.Equal(t, 3, report.PagesFetched)
	assert.Equal(t, 3, provider.extractCalls)
	assert.Equal(t, llm.Usage{InputTokens: 35, OutputTokens: 7}, report.Usage)
}

func TestRunExtractionFailureAbortsURLOnly(t *testing.T) {
	cfg := testConfig(t, "https://bad.example/a", "https://good.example/b")
	driver := &fakeDriver{pages: []string{"<p>content</p>"}}
	provider := &stubProvider{extractAnswer: `{"listings":[]}`}

	failing := &stubProvider{extractErr: errors.New("auth failure")}
	sessFail, _ := newTestSession(t, testConfig(t, "https://bad.example/a"), failing, driver, nil)
	report := sessFail.Run(context.Background())
	assert.Equal(t, 1, report.URLsFailed)
	assert.Zero(t, report.URLsProcessed)

	sess, _ := newTestSession(t, cfg, provider, driver, nil)
	report = sess.Run(context.Background())
	assert.Equal(t, 2, report.URLsProcessed)
	assert.Zero(t, report.URLsFailed)
}

func TestRunPlainTextAnswerStillPersists(t *testing.T) {
	cfg := testConfig(t, "https://site.example/tenders")
	provider := &stubProvider{extractAnswer: "No tenders found"}
	driver := &fakeDriver{pages: []string{"<p>empty</p>"}}

	sess, st := newTestSession(t, cfg, provider, driver, nil)
	report := sess.Run(context.Background())

	assert.Equal(t, 1, report.URLsProcessed)
	assert.Equal(t, 1, report.ListingsFound)
	assert.Equal(t, 1, report.RowsInserted)

	count, err := st.ListingCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
