package engine

import (
	"math"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// MaxRects keeps every maximal free rectangle, overlapping ones included. It packs
// denser than Guillotine but its layouts are not always guillotine-cuttable.
type MaxRects struct {
	Heuristic model.MaxRectsHeuristic
}

func (m MaxRects) Name() string {
	return "maxrects"
}

type maxRectsPacker struct {
	bin  rect
	free []rect
	used []rect
	kerf float64
	heur model.MaxRectsHeuristic
}

func (m MaxRects) Pack(sheet model.SourceSheet, sheetIndex int, pieces []model.CuttingPiece, params model.OptimizationParams) SheetPacking {
	bin := usableRect(sheet)
	mp := &maxRectsPacker{
		bin:  bin,
		free: []rect{bin},
		kerf: params.KerfWidth,
		heur: m.Heuristic,
	}
	if mp.heur == "" {
		mp.heur = model.MaxRectsBestShortSide
	}

	var out SheetPacking
	for _, p := range pieces {
		c := mp.find(orientationsFor(p, sheet, params))
		if !c.ok {
			out.Unplaced = append(out.Unplaced, p)
			continue
		}
		mp.place(rect{x: c.x, y: c.y, w: c.orient.Dimensions.Length + mp.kerf, h: c.orient.Dimensions.Width + mp.kerf})
		pl := newPlacement(p, c, sheetIndex)
		out.Placements = append(out.Placements, pl)
		out.Cuts = append(out.Cuts, mp.trailingCuts(pl)...)
	}

	out.FreeRects = freeSpacesFrom(mp.free, sheetIndex)
	klog.V(3).InfoS("maxrects pack", "sheet", sheetIndex, "placed", len(out.Placements), "free", len(mp.free))
	return out
}

func (mp *maxRectsPacker) find(orients []Orientation) candidate {
	var best candidate
	for i, r := range mp.free {
		for _, o := range orients {
			wk := o.Dimensions.Length + mp.kerf
			hk := o.Dimensions.Width + mp.kerf
			if !r.fits(wk, hk) {
				continue
			}
			c := candidate{ok: true, x: r.x, y: r.y, freeIndex: i, orient: o}
			leftW, leftH := r.w-wk, r.h-hk
			short, long := math.Min(leftW, leftH), math.Max(leftW, leftH)
			switch mp.heur {
			case model.MaxRectsBestLongSide:
				c.primary, c.secondary = long, short
			case model.MaxRectsBestArea:
				c.primary, c.secondary = r.area()-wk*hk, short
			case model.MaxRectsBottomLeft:
				c.primary, c.secondary = r.y+hk, r.x
			case model.MaxRectsContactPoint:
				c.primary = -mp.contactScore(r.x, r.y, wk, hk)
			default:
				c.primary, c.secondary = short, long
			}
			if c.better(best) {
				best = c
			}
		}
	}
	return best
}

// contactScore is the length of edge a box at (x,y) would share with the
// usable border and with placed pieces.
func (mp *maxRectsPacker) contactScore(x, y, w, h float64) float64 {
	var score float64
	if math.Abs(x) <= eps || math.Abs(x+w-mp.bin.w) <= eps {
		score += h
	}
	if math.Abs(y) <= eps || math.Abs(y+h-mp.bin.h) <= eps {
		score += w
	}
	for _, u := range mp.used {
		if math.Abs(u.x-(x+w)) <= eps || math.Abs(u.right()-x) <= eps {
			score += commonIntervalLength(u.y, u.bottom(), y, y+h)
		}
		if math.Abs(u.y-(y+h)) <= eps || math.Abs(u.bottom()-y) <= eps {
			score += commonIntervalLength(u.x, u.right(), x, x+w)
		}
	}
	return score
}

// place replaces every free rect the placement intersects with its maximal
// left, right, top and bottom remainders, then prunes contained rects.
func (mp *maxRectsPacker) place(placed rect) {
	next := make([]rect, 0, len(mp.free)+4)
	for _, r := range mp.free {
		if !rectsOverlap(r, placed) {
			next = append(next, r)
			continue
		}
		if placed.x > r.x+eps {
			next = append(next, rect{x: r.x, y: r.y, w: placed.x - r.x, h: r.h})
		}
		if placed.right() < r.right()-eps {
			next = append(next, rect{x: placed.right(), y: r.y, w: r.right() - placed.right(), h: r.h})
		}
		if placed.y > r.y+eps {
			next = append(next, rect{x: r.x, y: r.y, w: r.w, h: placed.y - r.y})
		}
		if placed.bottom() < r.bottom()-eps {
			next = append(next, rect{x: r.x, y: placed.bottom(), w: r.w, h: r.bottom() - placed.bottom()})
		}
	}
	mp.free = pruneContained(next)
	mp.used = append(mp.used, placed)
}

// trailingCuts returns the right and bottom edge cuts of a placement that do
// not coincide with the usable border.
func (mp *maxRectsPacker) trailingCuts(pl model.Placement) []model.Cut {
	x, y := pl.Position.X, pl.Position.Y
	w, h := pl.FinalDimensions.Length, pl.FinalDimensions.Width
	var cuts []model.Cut
	if x+w < mp.bin.w-eps {
		cuts = append(cuts, verticalCut(x+w, y, y+h, mp.kerf))
	}
	if y+h < mp.bin.h-eps {
		cuts = append(cuts, horizontalCut(y+h, x, x+w, mp.kerf))
	}
	return cuts
}
