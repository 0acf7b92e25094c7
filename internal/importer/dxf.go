package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/cutplan/internal/model"
)

// point is a 2D vertex of a drawing outline.
type point struct{ x, y float64 }

type segment struct{ a, b point }

// outline is a closed polygon read from a drawing.
type outline []point

func (o outline) bounds() (min, max point) {
	min = point{math.Inf(1), math.Inf(1)}
	max = point{math.Inf(-1), math.Inf(-1)}
	for _, p := range o {
		min.x, min.y = math.Min(min.x, p.x), math.Min(min.y, p.y)
		max.x, max.y = math.Max(max.x, p.x), math.Max(max.y, p.y)
	}
	return min, max
}

// area returns the absolute shoelace area.
func (o outline) area() float64 {
	if len(o) < 3 {
		return 0
	}
	var a float64
	for i := range o {
		j := (i + 1) % len(o)
		a += o[i].x*o[j].y - o[j].x*o[i].y
	}
	return math.Abs(a) / 2
}

// ImportDXF reads one piece per closed shape in a DXF file. A shape is a
// closed LWPOLYLINE, a CIRCLE, or a loop of connected LINE and ARC entities.
// Each piece is the bounding box of its shape; layers named after sheet
// outlines or cut lines of an exported plan are skipped.
func ImportDXF(path string) Result {
	res := Result{Pieces: []model.CuttingPiece{}}

	drawing, err := dxf.Open(path)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("cannot open DXF file: %v", err))
		return res
	}
	entities := drawing.Entities()
	if len(entities) == 0 {
		res.Errors = append(res.Errors, "DXF file contains no entities")
		return res
	}

	var shapes []outline
	var loose []segment
	for _, ent := range entities {
		if l := ent.Layer(); l != nil && skipLayer(l.Name()) {
			continue
		}
		switch e := ent.(type) {
		case *entity.LwPolyline:
			o := make(outline, 0, len(e.Vertices))
			for _, v := range e.Vertices {
				o = append(o, point{v[0], v[1]})
			}
			if len(o) < 3 {
				res.Warnings = append(res.Warnings, "skipped LWPOLYLINE with fewer than 3 vertices")
				continue
			}
			shapes = append(shapes, o)
		case *entity.Circle:
			c, r := point{e.Center[0], e.Center[1]}, e.Radius
			shapes = append(shapes, outline{{c.x - r, c.y - r}, {c.x + r, c.y - r}, {c.x + r, c.y + r}, {c.x - r, c.y + r}})
		case *entity.Arc:
			loose = append(loose, arcSegments(e, 16)...)
		case *entity.Line:
			loose = append(loose, segment{point{e.Start[0], e.Start[1]}, point{e.End[0], e.End[1]}})
		}
	}
	shapes = append(shapes, chainSegments(loose, 0.01)...)

	if len(shapes) == 0 {
		res.Errors = append(res.Errors, "no closed shapes found in DXF file")
		return res
	}

	for i, o := range shapes {
		min, max := o.bounds()
		l, w := max.x-min.x, max.y-min.y
		if l < 0.01 || w < 0.01 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("skipped degenerate shape (%.2f x %.2f mm)", l, w))
			continue
		}
		res.Pieces = append(res.Pieces, model.NewPiece(fmt.Sprintf("DXF piece %d", i+1), round2(l), round2(w), 1))
	}
	return res
}

// skipLayer reports whether a layer holds plan geometry rather than pieces.
func skipLayer(name string) bool {
	switch name {
	case "SHEET", "TRIM", "CUTS", "FREE", "TEXT":
		return true
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func arcSegments(a *entity.Arc, n int) []segment {
	cx, cy, r := a.Circle.Center[0], a.Circle.Center[1], a.Circle.Radius
	start := a.Angle[0] * math.Pi / 180
	end := a.Angle[1] * math.Pi / 180
	if end <= start {
		end += 2 * math.Pi
	}
	segs := make([]segment, 0, n)
	prev := point{cx + r*math.Cos(start), cy + r*math.Sin(start)}
	for i := 1; i <= n; i++ {
		t := start + float64(i)/float64(n)*(end-start)
		next := point{cx + r*math.Cos(t), cy + r*math.Sin(t)}
		segs = append(segs, segment{prev, next})
		prev = next
	}
	return segs
}

// chainSegments joins segments whose endpoints lie within tol into closed
// loops. Open chains are dropped. Loops come back largest first.
func chainSegments(segs []segment, tol float64) []outline {
	used := make([]bool, len(segs))
	var loops []outline
	for start := range segs {
		if used[start] {
			continue
		}
		used[start] = true
		chain := outline{segs[start].a, segs[start].b}
		for extended := true; extended; {
			extended = false
			tail := chain[len(chain)-1]
			for i, s := range segs {
				if used[i] {
					continue
				}
				switch {
				case near(tail, s.a, tol):
					chain = append(chain, s.b)
				case near(tail, s.b, tol):
					chain = append(chain, s.a)
				default:
					continue
				}
				used[i] = true
				extended = true
				break
			}
		}
		if len(chain) >= 4 && near(chain[0], chain[len(chain)-1], tol) {
			loops = append(loops, chain[:len(chain)-1])
		}
	}
	sort.SliceStable(loops, func(i, j int) bool { return loops[i].area() > loops[j].area() })
	return loops
}

func near(a, b point, tol float64) bool {
	return math.Hypot(a.x-b.x, a.y-b.y) <= tol
}
