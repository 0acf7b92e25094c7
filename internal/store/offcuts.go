package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/offcut"
)

const offcutColumns = `id, parent_sheet_id, parent_sheet_index, material_id, material_name, thickness,
	has_grain, grain_direction, pos_x, pos_y, length, width, price, state, reserved_by, created_at`

// OffcutStore is the SQLite offcut stock. State changes are compare-and-set on
// the current state, so concurrent callers cannot both reserve one offcut.
type OffcutStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewOffcutStore(db *sql.DB) *OffcutStore {
	return &OffcutStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Add inserts new offcuts in one transaction. An empty state becomes available.
func (s *OffcutStore) Add(ctx context.Context, offcuts ...model.ReusableOffcut) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add offcuts: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Format(time.RFC3339Nano)
	for _, o := range offcuts {
		if o.State == "" {
			o.State = model.OffcutAvailable
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = s.now()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO offcuts (`+offcutColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.ParentSheetID, o.ParentSheetIndex, o.MaterialID, o.MaterialName, o.Thickness,
			o.HasGrain, string(o.GrainDirection), o.Position.X, o.Position.Y,
			o.Dimensions.Length, o.Dimensions.Width, o.Price, string(o.State), o.ReservedBy,
			o.CreatedAt.UTC().Format(time.RFC3339Nano), now)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("%w: %s", offcut.ErrExists, o.ID)
			}
			return fmt.Errorf("insert offcut %s: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

func (s *OffcutStore) Get(ctx context.Context, id string) (model.ReusableOffcut, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+offcutColumns+` FROM offcuts WHERE id = ?`, id)
	o, err := scanOffcut(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReusableOffcut{}, fmt.Errorf("%w: %s", offcut.ErrNotFound, id)
	}
	return o, err
}

// List returns the offcuts matching c in consumption order.
func (s *OffcutStore) List(ctx context.Context, c offcut.Criteria) ([]model.ReusableOffcut, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+offcutColumns+` FROM offcuts
		WHERE (? = '' OR material_id = ?) ORDER BY created_at, id`, c.MaterialID, c.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("query offcuts: %w", err)
	}
	defer rows.Close()

	var out []model.ReusableOffcut
	for rows.Next() {
		o, err := scanOffcut(rows)
		if err != nil {
			return nil, err
		}
		if c.Matches(o) {
			out = append(out, o)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read offcuts: %w", err)
	}
	offcut.SortForConsumption(out)
	return out, nil
}

// Reserve moves every listed offcut to reserved for owner. Either all are
// reserved or none is.
func (s *OffcutStore) Reserve(ctx context.Context, ids []string, owner string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if err := s.casTx(ctx, tx, id, model.OffcutReserved, owner); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReserveMatching reserves every allocatable offcut matching c. Offcuts taken by
// a concurrent caller in the meantime are skipped.
func (s *OffcutStore) ReserveMatching(ctx context.Context, c offcut.Criteria, owner string) ([]model.ReusableOffcut, error) {
	c.States = nil
	candidates, err := s.List(ctx, c)
	if err != nil {
		return nil, err
	}

	var out []model.ReusableOffcut
	for _, o := range candidates {
		err := s.cas(ctx, o.ID, model.OffcutReserved, owner)
		if errors.Is(err, offcut.ErrNotAvailable) {
			continue
		}
		if err != nil {
			return out, err
		}
		o.State, o.ReservedBy = model.OffcutReserved, owner
		out = append(out, o)
	}
	return out, nil
}

func (s *OffcutStore) MarkUsed(ctx context.Context, id string) error {
	return s.cas(ctx, id, model.OffcutUsed, "")
}

// Release returns a reserved offcut to stock.
func (s *OffcutStore) Release(ctx context.Context, id string) error {
	return s.cas(ctx, id, model.OffcutReleased, "")
}

func (s *OffcutStore) Discard(ctx context.Context, id string) error {
	return s.cas(ctx, id, model.OffcutDiscarded, "")
}

func (s *OffcutStore) cas(ctx context.Context, id string, next model.OffcutState, owner string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()
	if err := s.casTx(ctx, tx, id, next, owner); err != nil {
		return err
	}
	return tx.Commit()
}

// casTx moves the offcut to next only if it is still in a state that allows it.
func (s *OffcutStore) casTx(ctx context.Context, tx *sql.Tx, id string, next model.OffcutState, owner string) error {
	from := sourceStates(next)
	set := `state = ?, updated_at = ?`
	args := []any{string(next), s.now().Format(time.RFC3339Nano)}
	// A used offcut remembers who consumed it.
	if next != model.OffcutUsed {
		set += `, reserved_by = ?`
		args = append(args, owner)
	}
	args = append(args, id)
	for _, st := range from {
		args = append(args, string(st))
	}
	query := `UPDATE offcuts SET ` + set + ` WHERE id = ? AND state IN (` + placeholders(len(from)) + `)`

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update offcut %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update offcut %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = tx.QueryRowContext(ctx, `SELECT state FROM offcuts WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", offcut.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("read offcut %s: %w", id, err)
	}
	if next == model.OffcutReserved {
		return fmt.Errorf("%w: %s is %s", offcut.ErrNotAvailable, id, current)
	}
	return fmt.Errorf("%w: %s from %s to %s", offcut.ErrInvalidTransition, id, current, next)
}

// sourceStates lists the states from which next may be reached.
func sourceStates(next model.OffcutState) []model.OffcutState {
	all := []model.OffcutState{
		model.OffcutAvailable, model.OffcutReserved, model.OffcutUsed,
		model.OffcutReleased, model.OffcutDiscarded,
	}
	var out []model.OffcutState
	for _, s := range all {
		if s.CanTransition(next) {
			out = append(out, s)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOffcut(sc scanner) (model.ReusableOffcut, error) {
	var (
		o                  model.ReusableOffcut
		grain, state, date string
	)
	err := sc.Scan(&o.ID, &o.ParentSheetID, &o.ParentSheetIndex, &o.MaterialID, &o.MaterialName, &o.Thickness,
		&o.HasGrain, &grain, &o.Position.X, &o.Position.Y, &o.Dimensions.Length, &o.Dimensions.Width,
		&o.Price, &state, &o.ReservedBy, &date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return o, err
		}
		return o, fmt.Errorf("scan offcut: %w", err)
	}
	o.GrainDirection = model.GrainAxis(grain)
	o.State = model.OffcutState(state)
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, date); err != nil {
		return o, fmt.Errorf("parse offcut %s created_at: %w", o.ID, err)
	}
	return o, nil
}
