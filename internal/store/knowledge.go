package store

import (
	"context"
	"fmt"
	"strings"
)

// Section is one of the project knowledge key/value tables.
type Section string

const (
	SectionGeneral      Section = "general"
	SectionArchitecture Section = "architecture"
	SectionOperations   Section = "operations"
	SectionDeployment   Section = "deployment"
	SectionTesting      Section = "testing"
)

// Sections lists every knowledge section in summary order.
var Sections = []Section{
	SectionGeneral,
	SectionArchitecture,
	SectionOperations,
	SectionDeployment,
	SectionTesting,
}

// Valid reports whether s names a known section. The section name is
// interpolated into SQL, so every query checks this first.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// Title is the capitalised section name.
func (s Section) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// SetInfo stores key=value in a section, replacing any previous value.
func (c conn) SetInfo(ctx context.Context, section Section, key, value string) error {
	if !section.Valid() {
		return fmt.Errorf("store: unknown section %q", section)
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)`, section)
	if _, err := c.exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("store: set %s info: %w", section, classify(err))
	}
	return nil
}

// Info returns a section's entries in insertion order.
func (c conn) Info(ctx context.Context, section Section) ([]KeyValue, error) {
	if !section.Valid() {
		return nil, fmt.Errorf("store: unknown section %q", section)
	}
	var out []KeyValue
	query := fmt.Sprintf(`SELECT key, value FROM %s ORDER BY rowid ASC`, section)
	if err := c.sel(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("store: %s info: %w", section, err)
	}
	return out, nil
}

// UpsertFact stores a fact, replacing the value, source and confidence of
// an existing (category, key) pair.
func (c conn) UpsertFact(ctx context.Context, f Fact) error {
	if f.Source == "" {
		f.Source = "manual"
	}
	_, err := c.exec(ctx, `
		INSERT INTO facts (category, key, value, source, confidence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (category, key) DO UPDATE SET
			value      = excluded.value,
			source     = excluded.source,
			confidence = excluded.confidence,
			timestamp  = datetime('now')`,
		f.Category, f.Key, f.Value, f.Source, f.Confidence,
	)
	if err != nil {
		return fmt.Errorf("store: upsert fact %s/%s: %w", f.Category, f.Key, classify(err))
	}
	return nil
}

// RecallFacts returns facts matching q, newest and most confident first.
func (c conn) RecallFacts(ctx context.Context, q FactQuery) ([]Fact, error) {
	var (
		where []string
		args  []any
	)
	if q.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, q.Category)
	}
	if q.Query != "" {
		where = append(where, `(key LIKE '%' || ? || '%' OR value LIKE '%' || ? || '%')`)
		args = append(args, q.Query, q.Query)
	}
	query := `SELECT id, category, key, value, source, confidence, timestamp FROM facts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY timestamp DESC, confidence DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	var out []Fact
	if err := c.sel(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("store: recall facts: %w", err)
	}
	return out, nil
}

// CountFacts returns the number of stored facts.
func (c conn) CountFacts(ctx context.Context) (int, error) {
	var n int
	if err := c.get(ctx, &n, `SELECT COUNT(*) FROM facts`); err != nil {
		return 0, fmt.Errorf("store: count facts: %w", err)
	}
	return n, nil
}
