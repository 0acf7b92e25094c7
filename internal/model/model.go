package model

import (
	"fmt"

	"github.com/google/uuid"
)

// GrainAxis names the axis along which the grain of a piece or sheet runs.
type GrainAxis string

const (
	GrainAlongLength GrainAxis = "length" // Grain runs along the X extent
	GrainAlongWidth  GrainAxis = "width"  // Grain runs along the Y extent
)

// Other returns the perpendicular axis.
func (g GrainAxis) Other() GrainAxis {
	if g == GrainAlongWidth {
		return GrainAlongLength
	}
	return GrainAlongWidth
}

// Valid reports whether g is empty or one of the known axes.
func (g GrainAxis) Valid() bool {
	return g == "" || g == GrainAlongLength || g == GrainAlongWidth
}

// Dimensions holds a rectangle size in mm. Length runs along X, Width along Y.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// Area returns Length x Width in square mm.
func (d Dimensions) Area() float64 {
	return d.Length * d.Width
}

// Rotated returns the dimensions turned by 90 degrees.
func (d Dimensions) Rotated() Dimensions {
	return Dimensions{Length: d.Width, Width: d.Length}
}

// LongSide returns the longer of the two sides.
func (d Dimensions) LongSide() float64 {
	if d.Length >= d.Width {
		return d.Length
	}
	return d.Width
}

// ShortSide returns the shorter of the two sides.
func (d Dimensions) ShortSide() float64 {
	if d.Length <= d.Width {
		return d.Length
	}
	return d.Width
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%.0fx%.0f", d.Length, d.Width)
}

// Position is a coordinate in mm measured from the usable-area corner of a sheet.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Expansion is the oversize added to a piece before packing (edge banding, machining).
type Expansion struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// CuttingPiece represents a required piece to be cut.
type CuttingPiece struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	CatalogueRef   string      `json:"catalogueRef,omitempty"`
	MaterialID     string      `json:"materialId,omitempty"` // Empty means any sheet
	Dimensions     Dimensions  `json:"dimensions"`
	Quantity       int         `json:"quantity"`
	HasGrain       bool        `json:"hasGrain"`
	GrainDirection GrainAxis   `json:"grainDirection,omitempty"`
	CanRotate      bool        `json:"canRotate"`
	Expansion      Expansion   `json:"expansion"`
	Edging         EdgeBanding `json:"edging"`
	GroupID        string      `json:"groupId,omitempty"`
	Priority       int         `json:"priority,omitempty"` // Higher is placed first when sorting by priority
}

// NewPiece creates a rotatable, grain-free piece with a generated ID.
func NewPiece(name string, length, width float64, qty int) CuttingPiece {
	return CuttingPiece{
		ID:         uuid.New().String()[:8],
		Name:       name,
		Dimensions: Dimensions{Length: length, Width: width},
		Quantity:   qty,
		CanRotate:  true,
	}
}

// ExpandedDimensions returns the nominal dimensions plus expansion.
func (p CuttingPiece) ExpandedDimensions() Dimensions {
	return Dimensions{
		Length: p.Dimensions.Length + p.Expansion.Length,
		Width:  p.Dimensions.Width + p.Expansion.Width,
	}
}

// Grain returns the effective grain axis of the piece, or "" when it has none.
func (p CuttingPiece) Grain() GrainAxis {
	if !p.HasGrain {
		return ""
	}
	if p.GrainDirection == "" {
		return GrainAlongLength
	}
	return p.GrainDirection
}

// Trim is the unusable border of a sheet in mm.
type Trim struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// SourceSheet represents an available sheet of material to cut from.
type SourceSheet struct {
	ID                string     `json:"id"`
	MaterialID        string     `json:"materialId,omitempty"`
	MaterialName      string     `json:"materialName,omitempty"`
	Dimensions        Dimensions `json:"dimensions"`
	Thickness         float64    `json:"thickness"`
	Trim              Trim       `json:"trim"`
	HasGrain          bool       `json:"hasGrain"`
	GrainDirection    GrainAxis  `json:"grainDirection,omitempty"`
	PricePerSheet     float64    `json:"pricePerSheet,omitempty"`
	PricePerM2        float64    `json:"pricePerM2,omitempty"`
	AvailableQuantity int        `json:"availableQuantity"` // 0 means unlimited
	IsOffcut          bool       `json:"isOffcut"`
	OffcutID          string     `json:"offcutId,omitempty"`
}

// NewSheet creates a grain-free sheet with no trim and a generated ID.
func NewSheet(material string, length, width float64, qty int) SourceSheet {
	return SourceSheet{
		ID:                uuid.New().String()[:8],
		MaterialID:        material,
		MaterialName:      material,
		Dimensions:        Dimensions{Length: length, Width: width},
		AvailableQuantity: qty,
	}
}

// UsableDimensions returns the sheet dimensions minus trim.
func (s SourceSheet) UsableDimensions() Dimensions {
	return Dimensions{
		Length: s.Dimensions.Length - s.Trim.Left - s.Trim.Right,
		Width:  s.Dimensions.Width - s.Trim.Top - s.Trim.Bottom,
	}
}

// Grain returns the effective grain axis of the sheet, or "" when it has none.
func (s SourceSheet) Grain() GrainAxis {
	if !s.HasGrain {
		return ""
	}
	if s.GrainDirection == "" {
		return GrainAlongLength
	}
	return s.GrainDirection
}

// Cost returns the price of one sheet. A per-sheet price wins over a per-m2 price.
func (s SourceSheet) Cost() float64 {
	if s.PricePerSheet > 0 {
		return s.PricePerSheet
	}
	return s.PricePerM2 * s.Dimensions.Area() / 1e6
}

// Label returns a short human-readable description of the sheet.
func (s SourceSheet) Label() string {
	name := s.MaterialName
	if name == "" {
		name = s.MaterialID
	}
	if name == "" {
		name = "Sheet"
	}
	if s.IsOffcut {
		name = "Offcut " + name
	}
	return fmt.Sprintf("%s %s", name, s.Dimensions)
}

// Accepts reports whether a piece may be cut from this sheet by material.
func (s SourceSheet) Accepts(p CuttingPiece) bool {
	return p.MaterialID == "" || s.MaterialID == "" || p.MaterialID == s.MaterialID
}
