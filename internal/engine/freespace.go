package engine

import (
	"math"
	"sort"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// ComputeFreeSpaces derives the free rectangles of a sheet from its placements alone.
// Each kerf-grown placement is subtracted from a disjoint free list, so the result
// covers exactly the usable area not occupied by pieces. Neighbours sharing a full
// edge are merged and the list is ordered by Y, then X.
func ComputeFreeSpaces(sheetIndex int, usable model.Dimensions, placements []model.Placement, kerf float64) []model.FreeSpace {
	bounds := rect{w: usable.Length, h: usable.Width}
	free := []rect{bounds}

	for _, p := range placements {
		occ := occupiedRect(p, kerf)
		// Kerf past the usable border is not cut from the sheet.
		occ.w = math.Min(occ.right(), bounds.w) - occ.x
		occ.h = math.Min(occ.bottom(), bounds.h) - occ.y

		var next []rect
		for _, r := range free {
			next = append(next, subtractRect(r, occ)...)
		}
		free = pruneContained(next)
	}

	free = mergeAdjacent(free)
	sort.SliceStable(free, func(i, j int) bool {
		if math.Abs(free[i].y-free[j].y) > eps {
			return free[i].y < free[j].y
		}
		return free[i].x < free[j].x
	})
	return freeSpacesFrom(free, sheetIndex)
}

// reconcileFreeSpaces compares a packer's own free list with the recomputed one and
// logs any disagreement. The recomputed geometry is what the plan keeps.
func reconcileFreeSpaces(sheetIndex int, sp SheetPacking, computed []model.FreeSpace, kerf float64) {
	var occupied []rect
	for _, p := range sp.Placements {
		occupied = append(occupied, occupiedRect(p, kerf))
	}

	var own []rect
	for _, f := range sp.FreeRects {
		r := rectFromFreeSpace(f)
		own = append(own, r)
		for _, o := range occupied {
			if rectsOverlap(r, o) {
				klog.ErrorS(nil, "free rect overlaps a placement", "sheet", sheetIndex, "free", r.String(), "placement", o.String())
				return
			}
		}
	}

	if !sp.Disjoint {
		return
	}
	var recomputed float64
	for _, f := range computed {
		recomputed += f.Area()
	}
	if d := math.Abs(totalArea(own) - recomputed); d > areaTolerance(recomputed) {
		klog.ErrorS(nil, "free area disagrees with recomputed geometry", "sheet", sheetIndex,
			"packer", totalArea(own), "recomputed", recomputed)
	}
}

func areaTolerance(area float64) float64 {
	return 1.0 + area*1e-6
}
