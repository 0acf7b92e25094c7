package engine

import (
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// ExpandQuantities turns every piece into Quantity unit copies, keeping the piece ID.
func ExpandQuantities(pieces []model.CuttingPiece) []model.CuttingPiece {
	var units []model.CuttingPiece
	for _, p := range pieces {
		for i := 0; i < p.Quantity; i++ {
			u := p
			u.Quantity = 1
			units = append(units, u)
		}
	}
	return units
}

// SortPieces returns a stably sorted copy of the units in the given order.
func SortPieces(units []model.CuttingPiece, order model.SortOrder) []model.CuttingPiece {
	out := make([]model.CuttingPiece, len(units))
	copy(out, units)
	less := sortFunc(order)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func sortFunc(order model.SortOrder) func(a, b model.CuttingPiece) bool {
	byArea := func(a, b model.Dimensions) bool {
		if a.Area() != b.Area() {
			return a.Area() > b.Area()
		}
		return a.LongSide() > b.LongSide()
	}
	switch order {
	case model.SortLongSideDesc:
		return func(a, b model.CuttingPiece) bool {
			da, db := a.ExpandedDimensions(), b.ExpandedDimensions()
			if da.LongSide() != db.LongSide() {
				return da.LongSide() > db.LongSide()
			}
			return da.Area() > db.Area()
		}
	case model.SortPerimeterDesc:
		return func(a, b model.CuttingPiece) bool {
			da, db := a.ExpandedDimensions(), b.ExpandedDimensions()
			pa, pb := da.Length+da.Width, db.Length+db.Width
			if pa != pb {
				return pa > pb
			}
			return byArea(da, db)
		}
	case model.SortWidthDesc:
		return func(a, b model.CuttingPiece) bool {
			da, db := a.ExpandedDimensions(), b.ExpandedDimensions()
			if da.Width != db.Width {
				return da.Width > db.Width
			}
			return da.Length > db.Length
		}
	case model.SortLengthDesc:
		return func(a, b model.CuttingPiece) bool {
			da, db := a.ExpandedDimensions(), b.ExpandedDimensions()
			if da.Length != db.Length {
				return da.Length > db.Length
			}
			return da.Width > db.Width
		}
	case model.SortPriority:
		return func(a, b model.CuttingPiece) bool {
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			if a.GroupID != b.GroupID {
				return a.GroupID < b.GroupID
			}
			return byArea(a.ExpandedDimensions(), b.ExpandedDimensions())
		}
	default:
		return func(a, b model.CuttingPiece) bool {
			return byArea(a.ExpandedDimensions(), b.ExpandedDimensions())
		}
	}
}

// iterationOrders returns n sort orders starting with first.
func iterationOrders(first model.SortOrder, n int) []model.SortOrder {
	all := []model.SortOrder{
		model.SortAreaDesc, model.SortLongSideDesc, model.SortPerimeterDesc,
		model.SortWidthDesc, model.SortLengthDesc, model.SortPriority,
	}
	out := []model.SortOrder{first}
	for _, o := range all {
		if len(out) >= n {
			break
		}
		if o != first {
			out = append(out, o)
		}
	}
	return out
}
