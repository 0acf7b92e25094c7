package engine

import (
	"math"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// Guillotine packs pieces with edge-to-edge cuts only. Every placement splits its
// free rectangle into exactly two disjoint remainders.
type Guillotine struct {
	Fit   model.GuillotineFit
	Split model.SplitRule
}

func (g Guillotine) Name() string {
	return "guillotine"
}

// guillotinePacker holds the free list of one packing attempt.
type guillotinePacker struct {
	free  []rect
	kerf  float64
	fit   model.GuillotineFit
	split model.SplitRule
	cuts  []model.Cut
}

func (g Guillotine) Pack(sheet model.SourceSheet, sheetIndex int, pieces []model.CuttingPiece, params model.OptimizationParams) SheetPacking {
	gp := &guillotinePacker{
		free:  []rect{usableRect(sheet)},
		kerf:  params.KerfWidth,
		fit:   g.Fit,
		split: g.Split,
	}
	if gp.fit == "" {
		gp.fit = model.FitBestArea
	}
	if gp.split == "" {
		gp.split = model.SplitShorterLeftoverAxis
	}

	out := SheetPacking{Disjoint: true}
	for _, p := range pieces {
		c := gp.find(orientationsFor(p, sheet, params))
		if !c.ok {
			out.Unplaced = append(out.Unplaced, p)
			continue
		}
		gp.place(c)
		out.Placements = append(out.Placements, newPlacement(p, c, sheetIndex))
	}

	out.FreeRects = freeSpacesFrom(gp.free, sheetIndex)
	out.Cuts = gp.cuts
	klog.V(3).InfoS("guillotine pack", "sheet", sheetIndex, "placed", len(out.Placements), "free", len(gp.free))
	return out
}

// find scans every free rect under every legal orientation and returns the best candidate.
func (gp *guillotinePacker) find(orients []Orientation) candidate {
	var best candidate
	for i, r := range gp.free {
		for _, o := range orients {
			wk := o.Dimensions.Length + gp.kerf
			hk := o.Dimensions.Width + gp.kerf
			if !r.fits(wk, hk) {
				continue
			}
			c := candidate{ok: true, x: r.x, y: r.y, freeIndex: i, orient: o}
			leftW, leftH := r.w-wk, r.h-hk
			switch gp.fit {
			case model.FitBestShortSide:
				c.primary = math.Min(leftW, leftH)
				c.secondary = math.Max(leftW, leftH)
			case model.FitBestLongSide:
				c.primary = math.Max(leftW, leftH)
				c.secondary = math.Min(leftW, leftH)
			case model.FitFirst:
				c.primary = float64(i)
			default:
				c.primary = r.area() - wk*hk
			}
			if c.better(best) {
				best = c
			}
		}
	}
	return best
}

// place commits a candidate: the piece goes flush to the rect origin and the
// L-shaped leftover is split in two along the configured axis.
func (gp *guillotinePacker) place(c candidate) {
	r := gp.free[c.freeIndex]
	gp.free = append(gp.free[:c.freeIndex], gp.free[c.freeIndex+1:]...)

	pw, ph := c.orient.Dimensions.Length, c.orient.Dimensions.Width
	wk, hk := pw+gp.kerf, ph+gp.kerf
	leftW, leftH := r.w-wk, r.h-hk

	var horizontal bool
	switch gp.split {
	case model.SplitLongerLeftoverAxis:
		horizontal = leftW > leftH
	case model.SplitMinimizeArea:
		horizontal = wk*leftH > leftW*hk
	case model.SplitMaximizeArea:
		horizontal = wk*leftH <= leftW*hk
	case model.SplitShorterAxis:
		horizontal = r.w <= r.h
	case model.SplitLongerAxis:
		horizontal = r.w > r.h
	default:
		horizontal = leftW <= leftH
	}

	var bottom, right rect
	cutRight := r.x+pw < r.right()-eps
	cutBelow := r.y+ph < r.bottom()-eps
	if horizontal {
		// Through cut along X below the piece; the bottom strip spans the full width.
		bottom = rect{x: r.x, y: r.y + hk, w: r.w, h: leftH}
		right = rect{x: r.x + wk, y: r.y, w: leftW, h: hk}
		if cutBelow {
			gp.cuts = append(gp.cuts, horizontalCut(r.y+ph, r.x, r.right(), gp.kerf))
		}
		if cutRight {
			gp.cuts = append(gp.cuts, verticalCut(r.x+pw, r.y, r.y+ph, gp.kerf))
		}
	} else {
		// Through cut along Y right of the piece; the right strip spans the full height.
		right = rect{x: r.x + wk, y: r.y, w: leftW, h: r.h}
		bottom = rect{x: r.x, y: r.y + hk, w: wk, h: leftH}
		if cutRight {
			gp.cuts = append(gp.cuts, verticalCut(r.x+pw, r.y, r.bottom(), gp.kerf))
		}
		if cutBelow {
			gp.cuts = append(gp.cuts, horizontalCut(r.y+ph, r.x, r.x+pw, gp.kerf))
		}
	}

	if !bottom.degenerate() {
		gp.free = append(gp.free, bottom)
	}
	if !right.degenerate() {
		gp.free = append(gp.free, right)
	}
}
