package listing

import "strings"

// Deduper drops listings whose (title, deadline) pair was already seen
// within one scrape session. In-memory only; it does not guard against
// duplicates across runs, that is the store's job.
type Deduper struct {
	seen map[string]bool
}

// NewDeduper creates an empty deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]bool)}
}

// Filter returns the listings not yet seen this session, recording the
// newcomers. Listings with an empty (title, deadline) pair are always
// kept since the key carries no identity.
func (d *Deduper) Filter(items []Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Value("title"))
		deadline := strings.TrimSpace(item.Value("deadline"))
		if title == "" && deadline == "" {
			out = append(out, item)
			continue
		}
		key := strings.ToLower(title) + "\x00" + strings.ToLower(deadline)
		if d.seen[key] {
			continue
		}
		d.seen[key] = true
		out = append(out, item)
	}
	return out
}
