// Package schema builds the record shape used to steer and validate
// LLM extraction. A schema is an explicit ordered field list rather than
// a generated type; validation is "every expected key has a (possibly
// empty) value".
package schema

import (
	"fmt"
	"strings"

	scrapererr "sjsage522/llmscraper/pkg/errors"
)

// DirectURLField is always appended to the requested fields so each
// listing can carry a link back to its source item.
const DirectURLField = "direct_url"

// ListingSchema is a named, ordered set of field names. All fields are
// optional strings; identity and ordering matter, types do not.
type ListingSchema struct {
	fields []string
}

// New validates the requested field names and returns a schema.
// Names must be non-empty and unique (case-insensitive).
func New(fields []string) (*ListingSchema, error) {
	if len(fields) == 0 {
		return nil, scrapererr.NewValidation("schema", "at least one field is required")
	}
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f)
		if name == "" {
			return nil, scrapererr.NewValidation("schema", "field names must not be blank")
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, scrapererr.NewValidation("schema", fmt.Sprintf("duplicate field name: %s", name))
		}
		seen[key] = true
		out = append(out, name)
	}
	return &ListingSchema{fields: out}, nil
}

// Fields returns the requested field names in their original order.
func (s *ListingSchema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Columns returns the full output field set: requested fields plus
// direct_url. This is the column set every normalized listing carries.
func (s *ListingSchema) Columns() []string {
	return append(s.Fields(), DirectURLField)
}

// Conform returns a copy of m restricted to the schema's columns, with
// absent keys filled with "". Unknown keys are preserved so catch-all
// values (like the plain-text fallback) survive into storage.
func (s *ListingSchema) Conform(m map[string]string) map[string]string {
	out := make(map[string]string, len(s.fields)+1)
	for k, v := range m {
		out[k] = v
	}
	for _, col := range s.Columns() {
		if _, ok := out[col]; !ok {
			out[col] = ""
		}
	}
	return out
}

// SystemMessage generates the extraction instruction describing the
// exact JSON shape expected from the provider, embedding the field
// names so any chat-style model can be steered without per-provider
// prompt code.
func (s *ListingSchema) SystemMessage() string {
	var b strings.Builder
	b.WriteString("You are an intelligent text extraction and conversion assistant. ")
	b.WriteString("Your task is to extract structured information from the given text and convert it into a pure JSON format. ")
	b.WriteString("The JSON should contain only the structured data extracted from the text, with no additional commentary, explanations, or extraneous information. ")
	b.WriteString("You could encounter cases where you can't find the data of the fields you have to extract or the data will be in a foreign language. ")
	b.WriteString("Process the following text and provide the output in pure JSON format with no words before or after the JSON.\n")
	b.WriteString("The output must strictly follow this schema:\n\n")
	b.WriteString("{\n    \"listings\": [\n        {\n")
	for i, f := range s.fields {
		b.WriteString(fmt.Sprintf("            %q: \"string\"", f))
		if i < len(s.fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("        }\n    ]\n}")
	return b.String()
}
