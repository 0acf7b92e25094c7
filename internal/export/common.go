package export

import (
	"hash/fnv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/piwi3910/cutplan/internal/model"
)

// palette assigns each distinct piece an evenly spaced hue, in order of first appearance.
type palette struct {
	colors map[string]colorful.Color
}

func newPalette(plan model.CuttingPlan) *palette {
	var ids []string
	seen := map[string]bool{}
	for _, us := range plan.Sheets {
		for _, p := range us.Placements {
			if !seen[p.Piece.ID] {
				seen[p.Piece.ID] = true
				ids = append(ids, p.Piece.ID)
			}
		}
	}

	pal := &palette{colors: make(map[string]colorful.Color, len(ids))}
	// Golden-angle steps keep neighbouring pieces apart in hue.
	for i, id := range ids {
		hue := float64(i) * 137.508
		for hue >= 360 {
			hue -= 360
		}
		pal.colors[id] = colorful.Hsv(hue, 0.45, 0.92)
	}
	return pal
}

// rgb returns the colour of a piece as 0-255 components.
func (p *palette) rgb(id string) (int, int, int) {
	c, ok := p.colors[id]
	if !ok {
		h := fnv.New32a()
		h.Write([]byte(id))
		c = colorful.Hsv(float64(h.Sum32()%360), 0.45, 0.92)
	}
	r, g, b := c.Clamped().RGB255()
	return int(r), int(g), int(b)
}

// hex returns the colour of a piece as #rrggbb.
func (p *palette) hex(id string) string {
	r, g, b := p.rgb(id)
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex()
}

func pieceName(p model.CuttingPiece) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// pieceCount is a piece and how many of its units a list holds.
type pieceCount struct {
	piece model.CuttingPiece
	count int
}

// groupPlacements counts placed units per piece ID in order of first appearance.
func groupPlacements(placements []model.Placement) []pieceCount {
	units := make([]model.CuttingPiece, len(placements))
	for i, p := range placements {
		units[i] = p.Piece
	}
	return groupUnits(units)
}

// groupUnits counts units per piece ID in order of first appearance.
func groupUnits(units []model.CuttingPiece) []pieceCount {
	var out []pieceCount
	index := map[string]int{}
	for _, u := range units {
		q := u.Quantity
		if q < 1 {
			q = 1
		}
		if i, ok := index[u.ID]; ok {
			out[i].count += q
			continue
		}
		index[u.ID] = len(out)
		out = append(out, pieceCount{piece: u, count: q})
	}
	return out
}
