// Package facts extracts key/value knowledge from markdown or plain text
// and stores it as learned facts.
package facts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/store"
)

// DefaultCategory is used when no header has set one.
const DefaultCategory = "general"

var (
	bulletRe   = regexp.MustCompile(`^[-*]\s+\*\*(.+?)\*\*:\s*(.+)$`)
	keyTrimRe  = regexp.MustCompile(`^[-*]\s*`)
	categoryRe = regexp.MustCompile(`[^a-z0-9]`)
)

// Category normalises a header into a category name.
func Category(header string) string {
	return categoryRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(header)), "_")
}

// Parse extracts facts from text. "# " and "## " headers switch the
// current category; "- **key**: value" bullets and "key: value" lines
// become facts.
func Parse(text, category, source string, confidence int) []store.Fact {
	if category == "" {
		category = DefaultCategory
	}
	current := category

	var out []store.Fact
	add := func(key, value string) {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			return
		}
		out = append(out, store.Fact{
			Category:   current,
			Key:        key,
			Value:      value,
			Source:     source,
			Confidence: confidence,
		})
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "# "):
			current = Category(strings.TrimPrefix(line, "# "))
			continue
		case strings.HasPrefix(line, "## "):
			current = Category(strings.TrimPrefix(line, "## "))
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			add(m[1], m[2])
			continue
		}
		if key, value, ok := strings.Cut(line, ": "); ok {
			add(keyTrimRe.ReplaceAllString(key, ""), value)
		}
	}
	return out
}

// Load resolves a learn input. A path ending in .md or .txt that exists
// is read from disk and becomes the source; anything else is literal
// text with source "manual".
func Load(input string) (content, source string, err error) {
	if strings.HasSuffix(input, ".md") || strings.HasSuffix(input, ".txt") {
		b, err := os.ReadFile(input)
		switch {
		case err == nil:
			return string(b), input, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", "", fmt.Errorf("could not read file: %s: %w", input, err)
		}
	}
	return input, "manual", nil
}

// Save upserts every fact in one transaction. A fact the store rejects is
// logged and skipped; the count of stored facts is returned.
func Save(ctx context.Context, s *store.Store, facts []store.Fact) (int, error) {
	logger := logging.For("facts")
	stored := 0
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		for _, f := range facts {
			if err := tx.UpsertFact(ctx, f); err != nil {
				if store.IsConstraint(err) {
					logger.Warn("fact skipped", "category", f.Category, "key", f.Key, "error", err)
					continue
				}
				return err
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// Categories returns the distinct categories of facts in first-seen order.
func Categories(facts []store.Fact) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range facts {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}
