package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/store"
)

// ErrEmptyTerm is returned by FindRelevantRisks for a blank search term.
var ErrEmptyTerm = errors.New("search term must not be empty")

// Incident is a failure being flagged against a task.
type Incident struct {
	TaskID         int64
	SessionID      string
	ErrorContext   string
	AttemptedFixes string
	Keywords       []string
	FilesEdited    store.FileList
}

// Recorded reports what RecordLandmine changed.
type Recorded struct {
	LandmineID int64
	Created    []string // keywords seen for the first time
	Updated    []string // existing keywords that gained the landmine
}

// Findings is the result of FindRelevantRisks. An empty Landmines slice
// means nothing matched.
type Findings struct {
	Term      string
	Landmines []store.Landmine
}

// Empty reports whether nothing matched.
func (f *Findings) Empty() bool { return f == nil || len(f.Landmines) == 0 }

// DanglingRef is a risk entry whose landmine no longer exists.
type DanglingRef struct {
	Keyword    string `json:"keyword"`
	LandmineID int64  `json:"landmine_id"`
}

// Correlator maintains the keyword to landmine associations.
type Correlator struct {
	repo   Repository
	logger *slog.Logger
}

// New returns a Correlator over repo.
func New(repo Repository) *Correlator {
	return &Correlator{repo: repo, logger: logging.For("risk")}
}

// RecordLandmine logs the incident on its task, stores the landmine and
// links it to every keyword, all in one atomic unit. An unknown task
// fails the first write and nothing is kept.
func (c *Correlator) RecordLandmine(ctx context.Context, in Incident) (*Recorded, error) {
	var rec *Recorded
	err := c.repo.Atomically(ctx, func(w Writer) error {
		r := &Recorded{}
		if _, err := w.AppendTaskLog(ctx, store.TaskLogParams{
			TaskID:      in.TaskID,
			LogType:     store.LogLandmine,
			Summary:     LandmineLogSummary(in.ErrorContext),
			FilesEdited: in.FilesEdited,
		}); err != nil {
			return err
		}

		id, err := w.InsertLandmine(ctx, store.LandmineParams{
			TaskID:         in.TaskID,
			SessionID:      in.SessionID,
			ErrorContext:   in.ErrorContext,
			AttemptedFixes: in.AttemptedFixes,
		})
		if err != nil {
			return err
		}
		r.LandmineID = id

		for _, keyword := range in.Keywords {
			if keyword == "" {
				continue
			}
			created, changed, err := link(ctx, w, keyword, id)
			if err != nil {
				return err
			}
			switch {
			case created:
				r.Created = append(r.Created, keyword)
			case changed:
				r.Updated = append(r.Updated, keyword)
			}
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("landmine recorded",
		"task_id", in.TaskID,
		"landmine_id", rec.LandmineID,
		"new_keywords", len(rec.Created),
		"updated_keywords", len(rec.Updated),
	)
	return rec, nil
}

// link adds id to keyword's risk, creating the risk if needed. A keyword
// repeated within one incident finds id already present and is a no-op.
func link(ctx context.Context, w Writer, keyword string, id int64) (created, changed bool, err error) {
	risk, err := w.RiskByKeyword(ctx, keyword)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := w.CreateRisk(ctx, keyword, Description(keyword), store.IDList{id}); err != nil {
			return false, false, err
		}
		return true, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if risk.LandmineIDs.Contains(id) {
		return false, false, nil
	}
	if err := w.SwapRiskLandmines(ctx, keyword, risk.Version, risk.LandmineIDs.Append(id)); err != nil {
		return false, false, err
	}
	return false, true, nil
}

// Description is the text stored with a newly created risk.
func Description(keyword string) string {
	return fmt.Sprintf("Risks related to %s.", keyword)
}

// FindRelevantRisks returns every landmine reachable from a keyword that
// contains term, plus every landmine whose own text contains term. Each
// landmine appears once, ordered by id.
//
// Matching is SQL LIKE containment: case-insensitive for ASCII, and a
// '%' or '_' inside term acts as a wildcard.
func (c *Correlator) FindRelevantRisks(ctx context.Context, term string) (*Findings, error) {
	if strings.TrimSpace(term) == "" {
		return nil, ErrEmptyTerm
	}

	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	lists, err := c.repo.RiskLandmineIDs(ctx, term)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		for _, id := range l {
			add(id)
		}
	}

	direct, err := c.repo.LandmineIDsMatching(ctx, term)
	if err != nil {
		return nil, err
	}
	for _, id := range direct {
		add(id)
	}

	f := &Findings{Term: term}
	if len(ids) == 0 {
		return f, nil
	}
	f.Landmines, err = c.repo.LandminesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Landmine returns one landmine. A missing id matches store.ErrNotFound.
func (c *Correlator) Landmine(ctx context.Context, id int64) (*store.Landmine, error) {
	return c.repo.Landmine(ctx, id)
}

// Verify reports every (keyword, landmine id) pair whose landmine is gone,
// which happens when a task and its landmines are deleted.
func (c *Correlator) Verify(ctx context.Context) ([]DanglingRef, error) {
	risks, err := c.repo.Risks(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := c.repo.AllLandmineIDs(ctx)
	if err != nil {
		return nil, err
	}
	live := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		live[id] = struct{}{}
	}

	var out []DanglingRef
	for _, r := range risks {
		for _, id := range r.LandmineIDs {
			if _, ok := live[id]; !ok {
				out = append(out, DanglingRef{Keyword: r.Keyword, LandmineID: id})
			}
		}
	}
	return out, nil
}
