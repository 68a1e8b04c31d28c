package fetcher

import (
	"context"
	"fmt"
	"io"

	"sjsage522/llmscraper/helpers"
)

// HTTPDriver fetches a single page over plain HTTP. It cannot click
// next controls, so every chain ends after page 1.
type HTTPDriver struct{}

// Load fetches the URL with randomized browser-like headers
func (d *HTTPDriver) Load(ctx context.Context, url string) (string, error) {
	body, err := helpers.FetchWithRandomHeaders(url)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	return string(data), nil
}

// NextPage always reports no next control
func (d *HTTPDriver) NextPage(ctx context.Context) (string, bool, error) {
	return "", false, nil
}

// Close is a no-op
func (d *HTTPDriver) Close() error {
	return nil
}
