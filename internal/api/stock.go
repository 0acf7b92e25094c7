package api

import (
	"context"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/offcut"
)

// Stock is the offcut inventory behind the API. Both the in-memory pool and
// the SQLite store satisfy it.
type Stock interface {
	Add(ctx context.Context, offcuts ...model.ReusableOffcut) error
	Get(ctx context.Context, id string) (model.ReusableOffcut, error)
	List(ctx context.Context, c offcut.Criteria) ([]model.ReusableOffcut, error)
	Reserve(ctx context.Context, ids []string, owner string) error
	ReserveMatching(ctx context.Context, c offcut.Criteria, owner string) ([]model.ReusableOffcut, error)
	MarkUsed(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
	Discard(ctx context.Context, id string) error
}

// MemoryStock adapts an offcut.Pool to Stock.
type MemoryStock struct {
	Pool *offcut.Pool
}

func NewMemoryStock() *MemoryStock {
	return &MemoryStock{Pool: offcut.NewPool()}
}

func (m *MemoryStock) Add(_ context.Context, offcuts ...model.ReusableOffcut) error {
	return m.Pool.Add(offcuts...)
}

func (m *MemoryStock) Get(_ context.Context, id string) (model.ReusableOffcut, error) {
	return m.Pool.Get(id)
}

func (m *MemoryStock) List(_ context.Context, c offcut.Criteria) ([]model.ReusableOffcut, error) {
	return m.Pool.List(c), nil
}

func (m *MemoryStock) Reserve(_ context.Context, ids []string, owner string) error {
	return m.Pool.Reserve(ids, owner)
}

func (m *MemoryStock) ReserveMatching(_ context.Context, c offcut.Criteria, owner string) ([]model.ReusableOffcut, error) {
	return m.Pool.ReserveMatching(c, owner), nil
}

func (m *MemoryStock) MarkUsed(_ context.Context, id string) error { return m.Pool.MarkUsed(id) }
func (m *MemoryStock) Release(_ context.Context, id string) error  { return m.Pool.Release(id) }
func (m *MemoryStock) Discard(_ context.Context, id string) error  { return m.Pool.Discard(id) }
