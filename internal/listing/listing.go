// Package listing reduces the heterogeneous shapes LLM providers answer
// with into one canonical form: a flat string-keyed mapping per
// extracted item.
package listing

import (
	"encoding/json"
	"strconv"
	"strings"

	"sjsage522/llmscraper/internal/schema"
)

// TextField is the catch-all key used when a provider answers with
// unstructured prose instead of JSON.
const TextField = "text"

// Listing is one extracted record: field name to extracted string value,
// empty string when not found. Immutable once produced.
type Listing map[string]string

// Value returns the listing's value for a field, matched
// case-insensitively.
func (l Listing) Value(field string) string {
	if v, ok := l[field]; ok {
		return v
	}
	for k, v := range l {
		if strings.EqualFold(k, field) {
			return v
		}
	}
	return ""
}

// Container is the canonical wire shape providers are instructed to
// return.
type Container struct {
	Listings []map[string]any `json:"listings"`
}

// Normalize reduces a raw provider response to a list of listings.
// Shape precedence:
//  1. a JSON object with a "listings" array
//  2. a bare JSON array of objects
//  3. a single JSON object without "listings"
//  4. anything else (plain prose, invalid JSON) wrapped as {"text": raw}
//
// Every resulting listing carries all schema columns, filling absent
// fields with "". Normalizing an already-canonical response returns it
// unchanged.
func Normalize(raw string, s *schema.ListingSchema) []Listing {
	trimmed := strings.TrimSpace(raw)

	var container Container
	if err := json.Unmarshal([]byte(trimmed), &container); err == nil && container.Listings != nil {
		return conformAll(container.Listings, s)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
		return conformAll(items, s)
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
		return conformAll([]map[string]any{single}, s)
	}

	// Unstructured response: keep the prose under a catch-all field.
	return []Listing{Listing(s.Conform(map[string]string{TextField: trimmed}))}
}

func conformAll(items []map[string]any, s *schema.ListingSchema) []Listing {
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		flat := make(map[string]string, len(item))
		for k, v := range item {
			flat[k] = coerce(v)
		}
		out = append(out, Listing(s.Conform(flat)))
	}
	return out
}

// coerce flattens a decoded JSON value to its string form. Nested
// structures are re-encoded rather than dropped.
func coerce(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
