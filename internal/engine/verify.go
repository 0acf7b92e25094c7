package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/cutplan/internal/model"
)

// VerifySheet checks the geometric invariants of one used sheet: placements stay
// inside the usable area, do not overlap, honour the grain, and together with
// the free spaces account for the whole usable area.
func VerifySheet(us model.UsedSheet, params model.OptimizationParams) error {
	bin := usableRect(us.Sheet)
	kerf := params.KerfWidth

	occupied := make([]rect, len(us.Placements))
	var occArea float64
	for i, p := range us.Placements {
		occ := occupiedRect(p, kerf)
		occupied[i] = occ
		if !containsRect(bin, occ) {
			return internalErr(us, "piece %s at %s leaves the usable area", p.Piece.ID, occ)
		}
		want := p.Piece.ExpandedDimensions()
		if p.Rotated {
			want = want.Rotated()
		}
		if math.Abs(want.Length-p.FinalDimensions.Length) > eps || math.Abs(want.Width-p.FinalDimensions.Width) > eps {
			return internalErr(us, "piece %s has final size %s, expected %s", p.Piece.ID, p.FinalDimensions, want)
		}
		if !IsLegal(p.Piece, us.Sheet, params, p.Rotated) {
			return internalErr(us, "piece %s placed against the grain", p.Piece.ID)
		}
		if !us.Sheet.Accepts(p.Piece) {
			return internalErr(us, "piece %s placed on the wrong material", p.Piece.ID)
		}
		occArea += occ.area()
	}

	for i := range occupied {
		for j := i + 1; j < len(occupied); j++ {
			if rectsOverlap(occupied[i], occupied[j]) {
				return internalErr(us, "placements %s and %s overlap", occupied[i], occupied[j])
			}
		}
	}

	free := make([]rect, len(us.FreeSpaces))
	var freeArea float64
	for i, f := range us.FreeSpaces {
		r := rectFromFreeSpace(f)
		free[i] = r
		if !containsRect(bin, r) {
			return internalErr(us, "free space %s leaves the usable area", f.ID)
		}
		for _, o := range occupied {
			if rectsOverlap(r, o) {
				return internalErr(us, "free space %s overlaps a placement", f.ID)
			}
		}
		for j := 0; j < i; j++ {
			if rectsOverlap(r, free[j]) {
				return internalErr(us, "free spaces %s and %s overlap", f.ID, us.FreeSpaces[j].ID)
			}
		}
		freeArea += r.area()
	}

	// Kerf hanging past the usable border is not material, so clip it before counting.
	var clipped float64
	for _, o := range occupied {
		clipped += (math.Min(o.right(), bin.w) - o.x) * (math.Min(o.bottom(), bin.h) - o.y)
	}
	if d := math.Abs(bin.area() - clipped - freeArea); d > areaTolerance(bin.area()) {
		return internalErr(us, "area not conserved: usable %.1f, occupied %.1f, free %.1f", bin.area(), occArea, freeArea)
	}
	return nil
}

// VerifyPlan runs VerifySheet on every sheet and checks that every unit of every
// requested piece is either placed or listed as unplaced.
func VerifyPlan(plan model.CuttingPlan, pieces []model.CuttingPiece, params model.OptimizationParams) error {
	for _, us := range plan.Sheets {
		if err := VerifySheet(us, params); err != nil {
			return err
		}
	}
	for _, p := range pieces {
		placed, unplaced := plan.PlacedCount(p.ID), plan.UnplacedCount(p.ID)
		if placed+unplaced != p.Quantity {
			return &model.OptimizationError{
				Kind:    model.ErrInternal,
				Message: fmt.Sprintf("quantity not conserved: %d placed + %d unplaced != %d", placed, unplaced, p.Quantity),
				PieceID: p.ID,
			}
		}
	}
	return nil
}

func internalErr(us model.UsedSheet, format string, args ...any) error {
	return &model.OptimizationError{
		Kind:    model.ErrInternal,
		Message: fmt.Sprintf("sheet %d: ", us.Index) + fmt.Sprintf(format, args...),
		SheetID: us.Sheet.ID,
	}
}
