// Package artifacts writes per-session audit files: the raw and
// cleaned markdown of every fetched page and the extracted listings as
// JSON and CSV. These files are for operators; nothing in the pipeline
// reads them back.
package artifacts

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sjsage522/llmscraper/internal/listing"
)

// Session is one scrape run's output directory.
type Session struct {
	Dir string
}

// NewSession creates the output directory for one target URL. The
// directory name combines the sanitized host with a timestamp so
// repeated runs never collide.
func NewSession(outputDir, pageURL string, now time.Time) (*Session, error) {
	dir := filepath.Join(outputDir, folderName(pageURL, now))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Session{Dir: dir}, nil
}

// WriteRawMarkdown saves the normalized markdown of one page.
func (s *Session) WriteRawMarkdown(page int, md string) error {
	return s.write(fmt.Sprintf("rawData_%d.md", page), []byte(md))
}

// WriteCleanedMarkdown saves the URL-stripped markdown of one page.
func (s *Session) WriteCleanedMarkdown(page int, md string) error {
	return s.write(fmt.Sprintf("rawData_%d_cleaned.md", page), []byte(md))
}

// WriteListings saves one page's extracted listings as JSON and CSV.
// The CSV columns follow the given order; JSON keeps the container
// shape the extraction produces.
func (s *Session) WriteListings(page int, listings []listing.Listing, columns []string) error {
	payload := struct {
		Listings []listing.Listing `json:"listings"`
	}{Listings: listings}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode listings: %w", err)
	}
	if err := s.write(fmt.Sprintf("sorted_data_%d.json", page), data); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(s.Dir, fmt.Sprintf("sorted_data_%d.csv", page)))
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, l := range listings {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = l.Value(col)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Session) write(name string, data []byte) error {
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// folderName sanitizes the URL host into a filesystem-safe directory
// name with a timestamp suffix.
func folderName(pageURL string, now time.Time) string {
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	var sb strings.Builder
	for _, r := range host {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String() + "_" + now.Format("20060102_150405")
}
