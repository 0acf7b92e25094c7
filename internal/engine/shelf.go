package engine

import (
	"sort"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// Shelf is the first-fit decreasing height packer. Pieces are laid flush-left in
// horizontal bands whose height is fixed by the first piece that opens them.
type Shelf struct{}

func (Shelf) Name() string {
	return "shelf"
}

type shelf struct {
	y, height float64 // height includes the kerf below the tallest piece
	cursor    float64
	members   []int // indexes into the placement list
}

func (Shelf) Pack(sheet model.SourceSheet, sheetIndex int, pieces []model.CuttingPiece, params model.OptimizationParams) SheetPacking {
	usable := usableRect(sheet)
	kerf := params.KerfWidth

	// Each piece takes its flattest legal orientation that fits the sheet at all.
	type item struct {
		index  int
		orient Orientation
		ok     bool
	}
	items := make([]item, len(pieces))
	for i, p := range pieces {
		items[i].index = i
		for _, o := range orientationsFor(p, sheet, params) {
			if !usable.fits(o.Dimensions.Length+kerf, o.Dimensions.Width+kerf) {
				continue
			}
			if !items[i].ok || o.Dimensions.Width < items[i].orient.Dimensions.Width {
				items[i].orient = o
				items[i].ok = true
			}
		}
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].orient.Dimensions.Width > items[b].orient.Dimensions.Width
	})

	var shelves []*shelf
	var cursorY float64
	placed := make([]bool, len(pieces))
	var out SheetPacking
	out.Disjoint = true

	for _, it := range items {
		if !it.ok {
			continue
		}
		wk := it.orient.Dimensions.Length + kerf
		hk := it.orient.Dimensions.Width + kerf

		var target *shelf
		for _, s := range shelves {
			if s.cursor+wk > usable.w+eps || hk > s.height+eps {
				continue
			}
			if target == nil || s.height-hk < target.height-hk-eps {
				target = s
			}
		}
		if target == nil {
			if cursorY+hk > usable.h+eps {
				continue
			}
			target = &shelf{y: cursorY, height: hk}
			shelves = append(shelves, target)
			cursorY += hk
		}

		c := candidate{ok: true, x: target.cursor, y: target.y, orient: it.orient}
		target.members = append(target.members, len(out.Placements))
		target.cursor += wk
		out.Placements = append(out.Placements, newPlacement(pieces[it.index], c, sheetIndex))
		placed[it.index] = true
	}

	for i, p := range pieces {
		if !placed[i] {
			out.Unplaced = append(out.Unplaced, p)
		}
	}

	var free []rect
	for _, s := range shelves {
		tallest := s.height - kerf
		if s.y+tallest < usable.h-eps {
			out.Cuts = append(out.Cuts, horizontalCut(s.y+tallest, 0, usable.w, kerf))
		}
		for _, idx := range s.members {
			pl := out.Placements[idx]
			x, w, h := pl.Position.X, pl.FinalDimensions.Length, pl.FinalDimensions.Width
			if x+w < usable.w-eps {
				out.Cuts = append(out.Cuts, verticalCut(x+w, s.y, s.y+tallest, kerf))
			}
			if h < tallest-eps {
				out.Cuts = append(out.Cuts, horizontalCut(s.y+h, x, x+w, kerf))
			}
			// Gap between a shorter piece and the shelf cut.
			free = append(free, rect{x: x, y: s.y + h + kerf, w: w + kerf, h: s.height - h - kerf})
		}
		free = append(free, rect{x: s.cursor, y: s.y, w: usable.w - s.cursor, h: s.height})
	}
	free = append(free, rect{x: 0, y: cursorY, w: usable.w, h: usable.h - cursorY})

	kept := free[:0]
	for _, r := range free {
		if !r.degenerate() {
			kept = append(kept, r)
		}
	}
	out.FreeRects = freeSpacesFrom(kept, sheetIndex)
	klog.V(3).InfoS("shelf pack", "sheet", sheetIndex, "placed", len(out.Placements), "shelves", len(shelves))
	return out
}
