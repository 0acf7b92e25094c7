package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/cutplan/internal/model"
)

// eps is the geometric tolerance in mm.
const eps = 0.001

type rect struct {
	x, y, w, h float64
}

func (r rect) right() float64  { return r.x + r.w }
func (r rect) bottom() float64 { return r.y + r.h }
func (r rect) area() float64   { return r.w * r.h }

func (r rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f %.1fx%.1f)", r.x, r.y, r.w, r.h)
}

// degenerate reports whether the rect is too thin to hold anything.
func (r rect) degenerate() bool {
	return r.w <= eps || r.h <= eps
}

// fits reports whether a w x h box fits inside r.
func (r rect) fits(w, h float64) bool {
	return w <= r.w+eps && h <= r.h+eps
}

func (r rect) freeSpace(id string) model.FreeSpace {
	return model.FreeSpace{
		ID:         id,
		Position:   model.Position{X: r.x, Y: r.y},
		Dimensions: model.Dimensions{Length: r.w, Width: r.h},
	}
}

func rectFromFreeSpace(f model.FreeSpace) rect {
	return rect{x: f.Position.X, y: f.Position.Y, w: f.Dimensions.Length, h: f.Dimensions.Width}
}

// occupiedRect returns the placement rectangle grown by kerf on its trailing edges.
func occupiedRect(p model.Placement, kerf float64) rect {
	return rect{
		x: p.Position.X,
		y: p.Position.Y,
		w: p.FinalDimensions.Length + kerf,
		h: p.FinalDimensions.Width + kerf,
	}
}

// rectsOverlap returns true if two rectangles overlap (not just touch).
func rectsOverlap(a, b rect) bool {
	return a.x < b.right()-eps && a.right() > b.x+eps &&
		a.y < b.bottom()-eps && a.bottom() > b.y+eps
}

// containsRect returns true if outer fully contains inner.
func containsRect(outer, inner rect) bool {
	return outer.x <= inner.x+eps && outer.y <= inner.y+eps &&
		outer.right() >= inner.right()-eps &&
		outer.bottom() >= inner.bottom()-eps
}

func sameRect(a, b rect) bool {
	return math.Abs(a.x-b.x) <= eps && math.Abs(a.y-b.y) <= eps &&
		math.Abs(a.w-b.w) <= eps && math.Abs(a.h-b.h) <= eps
}

// subtractRect subtracts sub from base and returns the disjoint remainders:
// full-height left and right strips, then the top and bottom parts of the middle column.
func subtractRect(base, sub rect) []rect {
	if !rectsOverlap(base, sub) {
		return []rect{base}
	}

	ix := math.Max(base.x, sub.x)
	iy := math.Max(base.y, sub.y)
	ir := math.Min(base.right(), sub.right())
	ib := math.Min(base.bottom(), sub.bottom())

	var result []rect
	if ix > base.x+eps {
		result = append(result, rect{x: base.x, y: base.y, w: ix - base.x, h: base.h})
	}
	if ir < base.right()-eps {
		result = append(result, rect{x: ir, y: base.y, w: base.right() - ir, h: base.h})
	}
	if iy > base.y+eps {
		result = append(result, rect{x: ix, y: base.y, w: ir - ix, h: iy - base.y})
	}
	if ib < base.bottom()-eps {
		result = append(result, rect{x: ix, y: ib, w: ir - ix, h: base.bottom() - ib})
	}
	return result
}

// pruneContained removes degenerate rects and any rect fully contained within another.
// Of two identical rects the first one is kept.
func pruneContained(rects []rect) []rect {
	kept := make([]rect, 0, len(rects))
	for i, a := range rects {
		if a.degenerate() {
			continue
		}
		contained := false
		for j, b := range rects {
			if i == j || b.degenerate() || !containsRect(b, a) {
				continue
			}
			if sameRect(a, b) && j > i {
				continue
			}
			contained = true
			break
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

// mergeAdjacent joins pairs of rects that share a full edge until no pair is left.
func mergeAdjacent(rects []rect) []rect {
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(rects) && !merged; i++ {
			for j := i + 1; j < len(rects); j++ {
				a, b := rects[i], rects[j]
				var m rect
				switch {
				case math.Abs(a.x-b.x) <= eps && math.Abs(a.w-b.w) <= eps && math.Abs(a.bottom()-b.y) <= eps:
					m = rect{x: a.x, y: a.y, w: a.w, h: a.h + b.h}
				case math.Abs(a.x-b.x) <= eps && math.Abs(a.w-b.w) <= eps && math.Abs(b.bottom()-a.y) <= eps:
					m = rect{x: a.x, y: b.y, w: a.w, h: a.h + b.h}
				case math.Abs(a.y-b.y) <= eps && math.Abs(a.h-b.h) <= eps && math.Abs(a.right()-b.x) <= eps:
					m = rect{x: a.x, y: a.y, w: a.w + b.w, h: a.h}
				case math.Abs(a.y-b.y) <= eps && math.Abs(a.h-b.h) <= eps && math.Abs(b.right()-a.x) <= eps:
					m = rect{x: b.x, y: a.y, w: a.w + b.w, h: a.h}
				default:
					continue
				}
				rects[i] = m
				rects = append(rects[:j], rects[j+1:]...)
				merged = true
				break
			}
		}
	}
	return rects
}

// commonIntervalLength returns the overlap length of [aStart,aEnd] and [bStart,bEnd].
func commonIntervalLength(aStart, aEnd, bStart, bEnd float64) float64 {
	if aEnd < bStart || bEnd < aStart {
		return 0
	}
	return math.Min(aEnd, bEnd) - math.Max(aStart, bStart)
}

func totalArea(rects []rect) float64 {
	var total float64
	for _, r := range rects {
		total += r.area()
	}
	return total
}
