package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const landmineColumns = `id, task_id, session_id, error_context, attempted_fixes, timestamp`

// InsertLandmine stores a new landmine and returns its id.
func (c conn) InsertLandmine(ctx context.Context, p LandmineParams) (int64, error) {
	id, err := c.insert(ctx,
		`INSERT INTO landmines (task_id, session_id, error_context, attempted_fixes) VALUES (?, ?, ?, ?)`,
		p.TaskID, p.SessionID, p.ErrorContext, p.AttemptedFixes,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert landmine: %w", err)
	}
	return id, nil
}

// Landmine returns the landmine with the given id.
func (c conn) Landmine(ctx context.Context, id int64) (*Landmine, error) {
	var l Landmine
	err := c.get(ctx, &l, `SELECT `+landmineColumns+` FROM landmines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("No landmine found with ID %d.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get landmine %d: %w", id, err)
	}
	return &l, nil
}

// LandminesByID returns the landmines whose ids are in ids, ordered by id.
// Ids with no row are skipped.
func (c conn) LandminesByID(ctx context.Context, ids []int64) ([]Landmine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+landmineColumns+` FROM landmines WHERE id IN (?) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("store: landmines by id: %w", err)
	}
	var out []Landmine
	if err := c.sel(ctx, &out, c.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("store: landmines by id: %w", err)
	}
	return out, nil
}

// LandmineIDsMatching returns the ids of landmines whose error context or
// attempted fixes contain term.
func (c conn) LandmineIDsMatching(ctx context.Context, term string) ([]int64, error) {
	var out []int64
	err := c.sel(ctx, &out, `
		SELECT id FROM landmines
		WHERE error_context LIKE '%' || ? || '%' OR attempted_fixes LIKE '%' || ? || '%'
		ORDER BY id ASC`, term, term)
	if err != nil {
		return nil, fmt.Errorf("store: match landmines: %w", err)
	}
	return out, nil
}

// RiskLandmineIDs returns the id lists of every risk whose keyword contains
// term.
func (c conn) RiskLandmineIDs(ctx context.Context, term string) ([]IDList, error) {
	var out []IDList
	err := c.sel(ctx, &out, `SELECT landmine_ids FROM risks WHERE keyword LIKE '%' || ? || '%' ORDER BY id ASC`, term)
	if err != nil {
		return nil, fmt.Errorf("store: match risks: %w", err)
	}
	return out, nil
}

// AllLandmineIDs returns every landmine id in ascending order.
func (c conn) AllLandmineIDs(ctx context.Context) ([]int64, error) {
	var out []int64
	if err := c.sel(ctx, &out, `SELECT id FROM landmines ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("store: landmine ids: %w", err)
	}
	return out, nil
}

// RecentLandmines returns up to limit landmines with their task and story,
// newest first.
func (c conn) RecentLandmines(ctx context.Context, limit int) ([]LandmineView, error) {
	var out []LandmineView
	err := c.sel(ctx, &out, `
		SELECT l.id, l.task_id, l.session_id, l.error_context, l.attempted_fixes, l.timestamp,
		       t.description AS task_description, t.story_id, s.message AS story_message
		FROM landmines l
		JOIN task t  ON t.id = l.task_id
		JOIN story s ON s.id = t.story_id
		ORDER BY l.timestamp DESC, l.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent landmines: %w", err)
	}
	return out, nil
}

// RiskByKeyword returns the risk for keyword.
func (c conn) RiskByKeyword(ctx context.Context, keyword string) (*Risk, error) {
	var r Risk
	err := c.get(ctx, &r, `
		SELECT id, keyword, description, landmine_ids, version, last_updated
		FROM risks WHERE keyword = ?`, keyword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("No risk found for keyword %q.", keyword)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get risk %q: %w", keyword, err)
	}
	return &r, nil
}

// CreateRisk inserts a keyword with its initial id list.
func (c conn) CreateRisk(ctx context.Context, keyword, description string, ids IDList) (int64, error) {
	id, err := c.insert(ctx,
		`INSERT INTO risks (keyword, description, landmine_ids) VALUES (?, ?, ?)`,
		keyword, description, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("store: create risk %q: %w", keyword, err)
	}
	return id, nil
}

// SwapRiskLandmines replaces a risk's id list if its version is still
// version. It returns ErrConflict when the row changed in between.
func (c conn) SwapRiskLandmines(ctx context.Context, keyword string, version int64, ids IDList) error {
	n, err := c.update(ctx, `
		UPDATE risks
		SET landmine_ids = ?, version = version + 1, last_updated = datetime('now')
		WHERE keyword = ? AND version = ?`, ids, keyword, version)
	if err != nil {
		return fmt.Errorf("store: update risk %q: %w", keyword, err)
	}
	if n == 0 {
		return fmt.Errorf("store: update risk %q at version %d: %w", keyword, version, ErrConflict)
	}
	return nil
}

// Risks returns every risk ordered by id.
func (c conn) Risks(ctx context.Context) ([]Risk, error) {
	var out []Risk
	err := c.sel(ctx, &out, `
		SELECT id, keyword, description, landmine_ids, version, last_updated
		FROM risks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: risks: %w", err)
	}
	return out, nil
}

// TopRisks returns the limit keywords pointing at the most landmines.
func (c conn) TopRisks(ctx context.Context, limit int) ([]RiskWeight, error) {
	var out []RiskWeight
	err := c.sel(ctx, &out, `
		SELECT keyword, json_array_length(landmine_ids) AS landmine_count
		FROM risks
		ORDER BY landmine_count DESC, keyword ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top risks: %w", err)
	}
	return out, nil
}
