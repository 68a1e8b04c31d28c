package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/llmscraper/internal/listing"
)

func TestNewSessionCreatesTimestampedHostDir(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	s, err := NewSession(base, "https://tenders.site.example/list?page=1", now)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "tenders_site_example_20250314_092653"), s.Dir)
	info, err := os.Stat(s.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFolderNameFallsBackToRawInput(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	name := folderName("not a url", now)
	assert.True(t, strings.HasPrefix(name, "not_a_url_"))
}

func TestWriteMarkdownArtifacts(t *testing.T) {
	s, err := NewSession(t.TempDir(), "https://site.example", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.WriteRawMarkdown(1, "# Page one"))
	require.NoError(t, s.WriteCleanedMarkdown(1, "Page one"))

	raw, err := os.ReadFile(filepath.Join(s.Dir, "rawData_1.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Page one", string(raw))

	cleaned, err := os.ReadFile(filepath.Join(s.Dir, "rawData_1_cleaned.md"))
	require.NoError(t, err)
	assert.Equal(t, "Page one", string(cleaned))
}

func TestWriteListings(t *testing.T) {
	s, err := NewSession(t.TempDir(), "https://site.example", time.Now())
	require.NoError(t, err)

	listings := []listing.Listing{
		{"Title": "RFP-1", "Deadline": "2025-01-01", "direct_url": ""},
		{"Title": "RFP-2", "Deadline": "", "direct_url": "https://site.example/2"},
	}
	columns := []string{"Title", "Deadline", "direct_url"}

	require.NoError(t, s.WriteListings(2, listings, columns))

	var payload struct {
		Listings []listing.Listing `json:"listings"`
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, "sorted_data_2.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.Listings, 2)
	assert.Equal(t, "RFP-1", payload.Listings[0]["Title"])

	csvData, err := os.ReadFile(filepath.Join(s.Dir, "sorted_data_2.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Title,Deadline,direct_url", lines[0])
	assert.Equal(t, "RFP-2,,https://site.example/2", lines[2])
}
