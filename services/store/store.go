// Package store is the persistence gateway: raw captures, structured
// listings and website bookkeeping in sqlite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sjsage522/llmscraper/config"
	"sjsage522/llmscraper/internal/listing"
	"sjsage522/llmscraper/internal/schema"
	scrapererr "sjsage522/llmscraper/pkg/errors"
)

// canonicalColumns maps the canonical listing labels to their table
// column names, in column order.
var canonicalColumns = buildCanonicalColumns()

type canonicalColumn struct {
	Label  string
	Column string
}

func buildCanonicalColumns() []canonicalColumn {
	cols := make([]canonicalColumn, 0, len(config.DefaultFields))
	for _, label := range config.DefaultFields {
		column := strings.ToLower(strings.ReplaceAll(label, " ", "_"))
		cols = append(cols, canonicalColumn{Label: label, Column: column})
	}
	return cols
}

// Store wraps the sqlite database. One store serves the whole process;
// each operation runs in its own transaction.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database and ensures the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, scrapererr.NewPersistence(dbPath, "failed to open database", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, scrapererr.NewPersistence(dbPath, "failed to initialize schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	var sb strings.Builder
	sb.WriteString(`
	CREATE TABLE IF NOT EXISTS scraped_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unique_name TEXT NOT NULL,
		url TEXT NOT NULL,
		raw_data TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS structured_listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raw_id INTEGER REFERENCES scraped_data(id),
		unique_name TEXT NOT NULL,
		url TEXT NOT NULL,
	`)
	for _, col := range canonicalColumns {
		fmt.Fprintf(&sb, "\t\t%s TEXT NOT NULL DEFAULT '',\n", col.Column)
	}
	sb.WriteString(`		direct_url TEXT NOT NULL DEFAULT '',
		extra TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		UNIQUE(title, description, reference_number)
	);

	CREATE TABLE IF NOT EXISTS website_info (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		name TEXT NOT NULL,
		labels TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(url, name)
	);
	`)

	_, err := s.db.Exec(sb.String())
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRawCapture stores one page's listings as a JSON blob and
// returns the row id for back-referencing.
func (s *Store) InsertRawCapture(uniqueName, url string, listings []listing.Listing) (int64, error) {
	blob, err := json.Marshal(map[string]any{"listings": listings})
	if err != nil {
		return 0, scrapererr.NewPersistence(url, "failed to encode raw capture", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO scraped_data (unique_name, url, raw_data, created_at) VALUES (?, ?, ?, ?)`,
		uniqueName, url, string(blob), now(),
	)
	if err != nil {
		return 0, scrapererr.NewPersistence(url, "failed to insert raw capture", err)
	}
	return res.LastInsertId()
}

// UpsertListings inserts the listings into the structured table and
// returns how many rows were actually inserted. Rows colliding on
// (title, description, reference_number) are skipped, not updated.
func (s *Store) UpsertListings(uniqueName, url string, rawID int64, listings []listing.Listing) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, scrapererr.NewPersistence(url, "failed to begin transaction", err)
	}

	columns := []string{"raw_id", "unique_name", "url"}
	for _, col := range canonicalColumns {
		columns = append(columns, col.Column)
	}
	columns = append(columns, "direct_url", "extra", "created_at")

	query := fmt.Sprintf(
		`INSERT INTO structured_listings (%s) VALUES (%s)
		 ON CONFLICT(title, description, reference_number) DO NOTHING`,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
	)

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return 0, scrapererr.NewPersistence(url, "failed to prepare insert", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range listings {
		args := []any{rawID, uniqueName, url}
		for _, col := range canonicalColumns {
			args = append(args, l.Value(col.Label))
		}
		args = append(args, l.Value(schema.DirectURLField), extraJSON(l), now())

		res, err := stmt.Exec(args...)
		if err != nil {
			tx.Rollback()
			return 0, scrapererr.NewPersistence(url, "failed to insert listing", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, scrapererr.NewPersistence(url, "failed to commit listings", err)
	}
	return inserted, nil
}

// RecordWebsiteInfo inserts or label-union-updates the bookkeeping row
// keyed by (url, name).
func (s *Store) RecordWebsiteInfo(url, name string, labels []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return scrapererr.NewPersistence(url, "failed to begin transaction", err)
	}

	var existing string
	err = tx.QueryRow(`SELECT labels FROM website_info WHERE url = ? AND name = ?`, url, name).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(
			`INSERT INTO website_info (url, name, labels, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			url, name, labelsJSON(labels), now(), now(),
		)
	case err == nil:
		var current []string
		if uerr := json.Unmarshal([]byte(existing), &current); uerr != nil {
			current = nil
		}
		merged := unionLabels(current, labels)
		_, err = tx.Exec(
			`UPDATE website_info SET labels = ?, updated_at = ? WHERE url = ? AND name = ?`,
			labelsJSON(merged), now(), url, name,
		)
	}
	if err != nil {
		tx.Rollback()
		return scrapererr.NewPersistence(url, "failed to record website info", err)
	}
	return tx.Commit()
}

// ListingCount returns the number of structured rows, for reporting.
func (s *Store) ListingCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM structured_listings`).Scan(&n)
	return n, err
}

// extraJSON serializes the fields that have no canonical column.
func extraJSON(l listing.Listing) string {
	canonical := make(map[string]bool, len(canonicalColumns)+1)
	for _, col := range canonicalColumns {
		canonical[strings.ToLower(col.Label)] = true
	}
	canonical[schema.DirectURLField] = true

	extra := make(map[string]string)
	for k, v := range l {
		if !canonical[strings.ToLower(k)] {
			extra[k] = v
		}
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func labelsJSON(labels []string) string {
	if labels == nil {
		labels = []string{}
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unionLabels merges two label sets, keeping first-seen order for the
// existing labels and sorting the additions for determinism.
func unionLabels(current, added []string) []string {
	seen := make(map[string]bool, len(current))
	out := make([]string, 0, len(current)+len(added))
	for _, l := range current {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	var fresh []string
	for _, l := range added {
		if !seen[l] {
			seen[l] = true
			fresh = append(fresh, l)
		}
	}
	sort.Strings(fresh)
	return append(out, fresh...)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
