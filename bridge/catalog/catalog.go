// Package catalog loads the clinic's price list from a CSV file and answers
// case/accent-insensitive, order-independent multi-word substring searches
// over it.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entry is one row of the price list.
type Entry struct {
	Name  string `json:"nombre"`
	Price string `json:"precio"`
}

type row struct {
	entry      Entry
	normalized string
}

// Catalog holds the loaded price table. Search reads an atomically swapped
// snapshot, so reloads never block lookups.
type Catalog struct {
	path   string
	rows   atomic.Pointer[[]row]
	logger zerolog.Logger
}

// New loads the CSV at path. The expected layout is two columns, name and
// price, with an optional header row.
func New(path string, logger zerolog.Logger) (*Catalog, error) {
	c := &Catalog{
		path:   path,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the CSV and swaps the table in place.
func (c *Catalog) Reload() error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open price list: %w", err)
	}
	defer f.Close()

	rows, err := parse(f)
	if err != nil {
		return fmt.Errorf("parse price list %s: %w", c.path, err)
	}

	c.rows.Store(&rows)
	c.logger.Info().Int("entries", len(rows)).Msg("price list loaded")
	return nil
}

// Search returns every entry whose normalized name contains every normalized
// token of the query, in any order.
func (c *Catalog) Search(query string) []Entry {
	tokens := strings.Fields(Normalize(query))
	if len(tokens) == 0 {
		return nil
	}

	rowsPtr := c.rows.Load()
	if rowsPtr == nil {
		return nil
	}

	var matches []Entry
	for _, r := range *rowsPtr {
		if containsAll(r.normalized, tokens) {
			matches = append(matches, r.entry)
		}
	}
	return matches
}

// Len reports the number of loaded entries.
func (c *Catalog) Len() int {
	rowsPtr := c.rows.Load()
	if rowsPtr == nil {
		return 0
	}
	return len(*rowsPtr)
}

func parse(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]row, 0, len(records))
	for i, record := range records {
		if len(record) < 2 {
			continue
		}
		name := strings.TrimSpace(record[0])
		price := strings.TrimSpace(record[1])
		if name == "" {
			continue
		}
		// Tolerate a header row.
		if i == 0 && strings.EqualFold(name, "nombre") || i == 0 && strings.EqualFold(name, "name") {
			continue
		}
		rows = append(rows, row{
			entry:      Entry{Name: name, Price: price},
			normalized: Normalize(name),
		})
	}
	return rows, nil
}

func containsAll(haystack string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(haystack, token) {
			return false
		}
	}
	return true
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases and strips combining accent marks so "Botóx" matches
// "botox".
func Normalize(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}
