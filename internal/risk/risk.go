// Package risk correlates landmines (documented failures) with risk
// keywords and answers "which past failures are relevant to X".
//
// The Correlator holds no state. Every operation runs against a
// Repository; FromStore adapts the SQLite record store, and tests can
// supply an in-memory implementation.
package risk

import (
	"context"

	"github.com/adestefa/ccmem/internal/store"
)

// Reader is the read side the correlator needs.
type Reader interface {
	RiskLandmineIDs(ctx context.Context, term string) ([]store.IDList, error)
	LandmineIDsMatching(ctx context.Context, term string) ([]int64, error)
	LandminesByID(ctx context.Context, ids []int64) ([]store.Landmine, error)
	Landmine(ctx context.Context, id int64) (*store.Landmine, error)
	Risks(ctx context.Context) ([]store.Risk, error)
	AllLandmineIDs(ctx context.Context) ([]int64, error)
}

// Writer is the write side used inside one atomic unit. *store.Tx
// satisfies it.
type Writer interface {
	AppendTaskLog(ctx context.Context, p store.TaskLogParams) (int64, error)
	InsertLandmine(ctx context.Context, p store.LandmineParams) (int64, error)
	RiskByKeyword(ctx context.Context, keyword string) (*store.Risk, error)
	CreateRisk(ctx context.Context, keyword, description string, ids store.IDList) (int64, error)
	SwapRiskLandmines(ctx context.Context, keyword string, version int64, ids store.IDList) error
}

// Repository gives the correlator reads plus an atomic write unit. If fn
// returns an error none of its writes may become visible.
type Repository interface {
	Reader
	Atomically(ctx context.Context, fn func(w Writer) error) error
}

// SQLRepository is the Repository backed by the record store.
type SQLRepository struct {
	*store.Store
}

// FromStore adapts s to a Repository.
func FromStore(s *store.Store) *SQLRepository {
	return &SQLRepository{Store: s}
}

// Atomically runs fn inside one store transaction.
func (r *SQLRepository) Atomically(ctx context.Context, fn func(w Writer) error) error {
	return r.WithTx(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}
