package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New([]string{"Title", "Deadline"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Deadline"}, s.Fields())
	assert.Equal(t, []string{"Title", "Deadline", "direct_url"}, s.Columns())
}

func TestNewRejectsInvalidFields(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]string{"Title", ""})
	assert.Error(t, err)

	_, err = New([]string{"Title", "title"})
	assert.Error(t, err, "duplicate detection should be case-insensitive")
}

func TestNewTrimsWhitespace(t *testing.T) {
	s, err := New([]string{" Title ", "Deadline"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Deadline"}, s.Fields())
}

func TestConform(t *testing.T) {
	s, err := New([]string{"Title", "Deadline"})
	require.NoError(t, err)

	got := s.Conform(map[string]string{"Title": "RFP-1"})
	assert.Equal(t, map[string]string{
		"Title":      "RFP-1",
		"Deadline":   "",
		"direct_url": "",
	}, got)

	// Unknown keys survive so catch-all values reach storage.
	got = s.Conform(map[string]string{"text": "No tenders found"})
	assert.Equal(t, "No tenders found", got["text"])
	assert.Equal(t, "", got["Title"])
	assert.Equal(t, "", got["Deadline"])
	assert.Equal(t, "", got["direct_url"])
}

func TestSystemMessage(t *testing.T) {
	s, err := New([]string{"Title", "Deadline"})
	require.NoError(t, err)

	msg := s.SystemMessage()
	assert.Contains(t, msg, `"listings"`)
	assert.Contains(t, msg, `"Title": "string"`)
	assert.Contains(t, msg, `"Deadline": "string"`)
	assert.Contains(t, msg, "pure JSON")
	// direct_url is filled locally, never requested from the provider.
	assert.NotContains(t, msg, "direct_url")
}
