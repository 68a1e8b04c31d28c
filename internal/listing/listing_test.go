package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/llmscraper/internal/schema"
)

func testSchema(t *testing.T) *schema.ListingSchema {
	t.Helper()
	s, err := schema.New([]string{"Title", "Deadline"})
	require.NoError(t, err)
	return s
}

func TestNormalizeContainerShape(t *testing.T) {
	s := testSchema(t)
	raw := `{"listings":[{"Title":"RFP-1","Deadline":"2025-01-01"}]}`

	got := Normalize(raw, s)
	require.Len(t, got, 1)
	assert.Equal(t, Listing{
		"Title":      "RFP-1",
		"Deadline":   "2025-01-01",
		"direct_url": "",
	}, got[0])
}

func TestNormalizeBareListShape(t *testing.T) {
	s := testSchema(t)
	raw := `[{"Title":"RFP-1"},{"Title":"RFP-2","Deadline":"2025-02-01"}]`

	got := Normalize(raw, s)
	require.Len(t, got, 2)
	assert.Equal(t, "RFP-1", got[0]["Title"])
	assert.Equal(t, "", got[0]["Deadline"])
	assert.Equal(t, "2025-02-01", got[1]["Deadline"])
}

func TestNormalizeSingleObjectShape(t *testing.T) {
	s := testSchema(t)
	raw := `{"Title":"RFP-1","Deadline":"2025-01-01"}`

	got := Normalize(raw, s)
	require.Len(t, got, 1)
	assert.Equal(t, "RFP-1", got[0]["Title"])
}

func TestNormalizePlainTextShape(t *testing.T) {
	s := testSchema(t)

	got := Normalize("No tenders found", s)
	require.Len(t, got, 1)
	assert.Equal(t, "No tenders found", got[0][TextField])
	assert.Equal(t, "", got[0]["Title"])
	assert.Equal(t, "", got[0]["Deadline"])
	assert.Equal(t, "", got[0]["direct_url"])
}

func TestNormalizeUniformColumns(t *testing.T) {
	s := testSchema(t)
	shapes := []string{
		`{"listings":[{"Title":"A"}]}`,
		`[{"Title":"A"}]`,
		`{"Title":"A"}`,
		`just some prose`,
	}
	for _, raw := range shapes {
		for _, l := range Normalize(raw, s) {
			assert.Contains(t, l, "Title", "shape %q", raw)
			assert.Contains(t, l, "Deadline", "shape %q", raw)
			assert.Contains(t, l, "direct_url", "shape %q", raw)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	s := testSchema(t)
	raw := `{"listings":[{"Title":"RFP-1","Deadline":"2025-01-01","direct_url":""}]}`

	first := Normalize(raw, s)
	again := Normalize(`{"listings":[{"Title":"RFP-1","Deadline":"2025-01-01","direct_url":""}]}`, s)
	assert.Equal(t, first, again)
	require.Len(t, again, 1)
	assert.Equal(t, first[0], again[0])
}

func TestNormalizeCoercesValueTypes(t *testing.T) {
	s := testSchema(t)
	raw := `{"listings":[{"Title":"RFP-1","Deadline":null,"Value":120000.5,"Open":true,"Tags":["a","b"]}]}`

	got := Normalize(raw, s)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0]["Deadline"])
	assert.Equal(t, "120000.5", got[0]["Value"])
	assert.Equal(t, "true", got[0]["Open"])
	assert.Equal(t, `["a","b"]`, got[0]["Tags"])
}

func TestValueCaseInsensitive(t *testing.T) {
	l := Listing{"Title": "RFP-1"}
	assert.Equal(t, "RFP-1", l.Value("title"))
	assert.Equal(t, "", l.Value("deadline"))
}

func TestDeduper(t *testing.T) {
	d := NewDeduper()

	a := Listing{"Title": "RFP-1", "Deadline": "2025-01-01"}
	dup := Listing{"Title": "RFP-1", "Deadline": "2025-01-01"}
	b := Listing{"Title": "RFP-1", "Deadline": "2025-06-01"}
	c := Listing{"Title": "RFP-2", "Deadline": "2025-01-01"}

	got := d.Filter([]Listing{a, dup, b, c})
	assert.Equal(t, []Listing{a, b, c}, got)

	// A later page repeating an already-emitted pair is dropped too.
	got = d.Filter([]Listing{dup})
	assert.Empty(t, got)
}

func TestDeduperKeepsKeylessListings(t *testing.T) {
	d := NewDeduper()
	a := Listing{"text": "No tenders found"}
	b := Listing{"text": "Still nothing"}

	got := d.Filter([]Listing{a, b})
	assert.Len(t, got, 2)
}
