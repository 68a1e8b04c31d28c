package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver serves a fixed chain of pages
type fakeDriver struct {
	pages   []string
	loadErr error
	nextErr error
	cursor  int
	closed  bool
}

func (d *fakeDriver) Load(ctx context.Context, url string) (string, error) {
	if d.loadErr != nil {
		return "", d.loadErr
	}
	d.cursor = 1
	return d.pages[0], nil
}

func (d *fakeDriver) NextPage(ctx context.Context) (string, bool, error) {
	if d.nextErr != nil {
		return "", false, d.nextErr
	}
	if d.cursor >= len(d.pages) {
		return "", false, nil
	}
	html := d.pages[d.cursor]
	d.cursor++
	return html, true, nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (c *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(key string) error {
	delete(c.data, key)
	return nil
}

func newTestFetcher(d Driver, c *memoryCache) *Fetcher {
	newDriver := func() (Driver, error) { return d, nil }
	if c == nil {
		return NewWithDriver(newDriver, nil, 5*time.Minute)
	}
	return NewWithDriver(newDriver, c, 5*time.Minute)
}

func TestFetchFollowsChainToItsEnd(t *testing.T) {
	driver := &fakeDriver{pages: []string{"<p>one</p>", "<p>two</p>", "<p>three</p>"}}
	f := newTestFetcher(driver, nil)

	pages, err := f.Fetch(context.Background(), "https://site.example/tenders", 10)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Page)
	assert.Equal(t, "<p>three</p>", pages[2].HTML)
	assert.Equal(t, "https://site.example/tenders", pages[1].URL)
	assert.True(t, driver.closed)
}

func TestFetchHonorsMaxPages(t *testing.T) {
	driver := &fakeDriver{pages: []string{"<p>one</p>", "<p>two</p>", "<p>three</p>"}}
	f := newTestFetcher(driver, nil)

	pages, err := f.Fetch(context.Background(), "https://site.example/tenders", 1)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "<p>one</p>", pages[0].HTML)
}

func TestFetchFirstLoadFailureIsAnError(t *testing.T) {
	driver := &fakeDriver{pages: []string{"x"}, loadErr: errors.New("navigation timeout")}
	f := newTestFetcher(driver, nil)

	_, err := f.Fetch(context.Background(), "https://site.example/tenders", 3)
	assert.Error(t, err)
	assert.True(t, driver.closed)
}

func TestFetchNextPageErrorEndsChainGracefully(t *testing.T) {
	driver := &fakeDriver{pages: []string{"<p>one</p>", "<p>two</p>"}, nextErr: errors.New("stale element")}
	f := newTestFetcher(driver, nil)

	pages, err := f.Fetch(context.Background(), "https://site.example/tenders", 5)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestFetchRateLimitSetsBlockAndGates(t *testing.T) {
	c := newMemoryCache()
	driver := &fakeDriver{pages: []string{"x"}, loadErr: errors.New("rate limited; retry after 60")}
	f := newTestFetcher(driver, c)

	_, err := f.Fetch(context.Background(), "https://site.example/tenders", 1)
	require.Error(t, err)

	_, blocked := c.data["fetch_block:site.example"]
	assert.True(t, blocked)

	// The host is now gated even though the driver would succeed.
	driver.loadErr = nil
	_, err = f.Fetch(context.Background(), "https://site.example/other", 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestHTTPDriverHasNoPagination(t *testing.T) {
	d := &HTTPDriver{}
	_, found, err := d.NextPage(context.Background())
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, d.Close())
}
