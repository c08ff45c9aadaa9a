package risk_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/adestefa/ccmem/internal/risk"
	"github.com/adestefa/ccmem/internal/store"
)

// memRepo is an in-memory Repository. Atomically works on a copy and
// swaps it in only when fn succeeds.
type memRepo struct {
	state *memState
	// failOn makes the named write fail inside Atomically.
	failOn string
}

type memState struct {
	tasks     map[int64]bool
	logs      []store.TaskLogParams
	landmines map[int64]store.Landmine
	risks     map[string]store.Risk
	nextLM    int64
	nextRisk  int64
}

func newMemRepo(taskIDs ...int64) *memRepo {
	st := &memState{
		tasks:     map[int64]bool{},
		landmines: map[int64]store.Landmine{},
		risks:     map[string]store.Risk{},
		nextLM:    1,
		nextRisk:  1,
	}
	for _, id := range taskIDs {
		st.tasks[id] = true
	}
	return &memRepo{state: st}
}

func (s *memState) clone() *memState {
	c := &memState{
		tasks:     make(map[int64]bool, len(s.tasks)),
		logs:      append([]store.TaskLogParams(nil), s.logs...),
		landmines: make(map[int64]store.Landmine, len(s.landmines)),
		risks:     make(map[string]store.Risk, len(s.risks)),
		nextLM:    s.nextLM,
		nextRisk:  s.nextRisk,
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.landmines {
		c.landmines[k] = v
	}
	for k, v := range s.risks {
		v.LandmineIDs = append(store.IDList(nil), v.LandmineIDs...)
		c.risks[k] = v
	}
	return c
}

func (m *memRepo) Atomically(ctx context.Context, fn func(w risk.Writer) error) error {
	work := &memWriter{state: m.state.clone(), failOn: m.failOn}
	if err := fn(work); err != nil {
		return err
	}
	m.state = work.state
	return nil
}

func like(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (m *memRepo) RiskLandmineIDs(ctx context.Context, term string) ([]store.IDList, error) {
	var out []store.IDList
	for _, r := range m.sortedRisks() {
		if like(r.Keyword, term) {
			out = append(out, r.LandmineIDs)
		}
	}
	return out, nil
}

func (m *memRepo) LandmineIDsMatching(ctx context.Context, term string) ([]int64, error) {
	var out []int64
	for _, id := range m.sortedLandmineIDs() {
		l := m.state.landmines[id]
		if like(l.ErrorContext, term) || like(l.AttemptedFixes, term) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memRepo) LandminesByID(ctx context.Context, ids []int64) ([]store.Landmine, error) {
	var out []store.Landmine
	for _, id := range ids {
		if l, ok := m.state.landmines[id]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Landmine(ctx context.Context, id int64) (*store.Landmine, error) {
	l, ok := m.state.landmines[id]
	if !ok {
		return nil, store.NotFoundf("No landmine found with ID %d.", id)
	}
	return &l, nil
}

func (m *memRepo) Risks(ctx context.Context) ([]store.Risk, error) {
	return m.sortedRisks(), nil
}

func (m *memRepo) AllLandmineIDs(ctx context.Context) ([]int64, error) {
	return m.sortedLandmineIDs(), nil
}

func (m *memRepo) sortedRisks() []store.Risk {
	out := make([]store.Risk, 0, len(m.state.risks))
	for _, r := range m.state.risks {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memRepo) sortedLandmineIDs() []int64 {
	out := make([]int64, 0, len(m.state.landmines))
	for id := range m.state.landmines {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// deleteLandmine simulates a cascade from a deleted task.
func (m *memRepo) deleteLandmine(id int64) {
	delete(m.state.landmines, id)
}

type memWriter struct {
	state  *memState
	failOn string
}

func (w *memWriter) fail(op string) error {
	if w.failOn == op {
		return fmt.Errorf("%s: injected failure", op)
	}
	return nil
}

func (w *memWriter) AppendTaskLog(ctx context.Context, p store.TaskLogParams) (int64, error) {
	if err := w.fail("AppendTaskLog"); err != nil {
		return 0, err
	}
	if !w.state.tasks[p.TaskID] {
		return 0, &store.ConstraintError{Err: errors.New("FOREIGN KEY constraint failed")}
	}
	w.state.logs = append(w.state.logs, p)
	return int64(len(w.state.logs)), nil
}

func (w *memWriter) InsertLandmine(ctx context.Context, p store.LandmineParams) (int64, error) {
	if err := w.fail("InsertLandmine"); err != nil {
		return 0, err
	}
	id := w.state.nextLM
	w.state.nextLM++
	w.state.landmines[id] = store.Landmine{
		ID:             id,
		TaskID:         p.TaskID,
		SessionID:      p.SessionID,
		ErrorContext:   p.ErrorContext,
		AttemptedFixes: p.AttemptedFixes,
		Timestamp:      "2026-01-02 03:04:05",
	}
	return id, nil
}

func (w *memWriter) RiskByKeyword(ctx context.Context, keyword string) (*store.Risk, error) {
	r, ok := w.state.risks[keyword]
	if !ok {
		return nil, store.NotFoundf("No risk found for keyword %q.", keyword)
	}
	r.LandmineIDs = append(store.IDList(nil), r.LandmineIDs...)
	return &r, nil
}

func (w *memWriter) CreateRisk(ctx context.Context, keyword, description string, ids store.IDList) (int64, error) {
	if err := w.fail("CreateRisk"); err != nil {
		return 0, err
	}
	if _, ok := w.state.risks[keyword]; ok {
		return 0, &store.ConstraintError{Err: errors.New("UNIQUE constraint failed: risks.keyword")}
	}
	id := w.state.nextRisk
	w.state.nextRisk++
	w.state.risks[keyword] = store.Risk{
		ID:          id,
		Keyword:     keyword,
		Description: description,
		LandmineIDs: append(store.IDList(nil), ids...),
		Version:     1,
	}
	return id, nil
}

func (w *memWriter) SwapRiskLandmines(ctx context.Context, keyword string, version int64, ids store.IDList) error {
	if err := w.fail("SwapRiskLandmines"); err != nil {
		return err
	}
	r, ok := w.state.risks[keyword]
	if !ok || r.Version != version {
		return store.ErrConflict
	}
	r.LandmineIDs = append(store.IDList(nil), ids...)
	r.Version++
	w.state.risks[keyword] = r
	return nil
}
