package model

import (
	"math"
	"strings"
)

// EdgeBanding marks which edges of a piece get banding tape.
// Top and Bottom run along the length, Left and Right along the width.
type EdgeBanding struct {
	Top       bool    `json:"top"`
	Bottom    bool    `json:"bottom"`
	Left      bool    `json:"left"`
	Right     bool    `json:"right"`
	Thickness float64 `json:"thickness,omitempty"` // Tape thickness in mm
}

// HasAny reports whether at least one edge is banded.
func (e EdgeBanding) HasAny() bool {
	return e.Top || e.Bottom || e.Left || e.Right
}

// EdgeCount returns the number of banded edges.
func (e EdgeBanding) EdgeCount() int {
	n := 0
	for _, b := range []bool{e.Top, e.Bottom, e.Left, e.Right} {
		if b {
			n++
		}
	}
	return n
}

// LinearLength returns the tape length in mm for one piece of the given size.
func (e EdgeBanding) LinearLength(d Dimensions) float64 {
	var total float64
	if e.Top {
		total += d.Length
	}
	if e.Bottom {
		total += d.Length
	}
	if e.Left {
		total += d.Width
	}
	if e.Right {
		total += d.Width
	}
	return total
}

// String returns the banded edges as e.g. "T+B+L".
func (e EdgeBanding) String() string {
	var parts []string
	if e.Top {
		parts = append(parts, "T")
	}
	if e.Bottom {
		parts = append(parts, "B")
	}
	if e.Left {
		parts = append(parts, "L")
	}
	if e.Right {
		parts = append(parts, "R")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// EdgeBandingSummary holds the calculated edge banding requirements for a job.
type EdgeBandingSummary struct {
	TotalLinearMM    float64 `json:"totalLinearMm"`    // No waste
	TotalLinearM     float64 `json:"totalLinearM"`     // No waste
	WastePercent     float64 `json:"wastePercent"`     // Waste percentage applied
	TotalWithWasteMM float64 `json:"totalWithWasteMm"` // Rounded up
	TotalWithWasteM  float64 `json:"totalWithWasteM"`
	PieceCount       int     `json:"pieceCount"` // Individual pieces needing banding
	EdgeCount        int     `json:"edgeCount"`  // Total edges needing banding
}

// CalculateEdgeBanding computes the total edge banding needed for a list of pieces.
// wastePercent is the additional percentage to add for waste (e.g., 10 for 10%).
func CalculateEdgeBanding(pieces []CuttingPiece, wastePercent float64) EdgeBandingSummary {
	var totalMM float64
	var pieceCount, edgeCount int

	for _, p := range pieces {
		if !p.Edging.HasAny() {
			continue
		}
		totalMM += p.Edging.LinearLength(p.Dimensions) * float64(p.Quantity)
		pieceCount += p.Quantity
		edgeCount += p.Edging.EdgeCount() * p.Quantity
	}

	withWaste := math.Ceil(totalMM * (1.0 + wastePercent/100.0))
	return EdgeBandingSummary{
		TotalLinearMM:    totalMM,
		TotalLinearM:     totalMM / 1000.0,
		WastePercent:     wastePercent,
		TotalWithWasteMM: withWaste,
		TotalWithWasteM:  withWaste / 1000.0,
		PieceCount:       pieceCount,
		EdgeCount:        edgeCount,
	}
}

// PieceEdgeBanding is the banding need of one piece type.
type PieceEdgeBanding struct {
	Name          string     `json:"name"`
	Dimensions    Dimensions `json:"dimensions"`
	Quantity      int        `json:"quantity"`
	Edges         string     `json:"edges"`
	LengthPerUnit float64    `json:"lengthPerUnit"`
	TotalLength   float64    `json:"totalLength"`
}

// CalculatePerPieceEdgeBanding returns a breakdown of banding per piece type.
func CalculatePerPieceEdgeBanding(pieces []CuttingPiece) []PieceEdgeBanding {
	var results []PieceEdgeBanding
	for _, p := range pieces {
		if !p.Edging.HasAny() {
			continue
		}
		perUnit := p.Edging.LinearLength(p.Dimensions)
		results = append(results, PieceEdgeBanding{
			Name:          p.Name,
			Dimensions:    p.Dimensions,
			Quantity:      p.Quantity,
			Edges:         p.Edging.String(),
			LengthPerUnit: perUnit,
			TotalLength:   perUnit * float64(p.Quantity),
		})
	}
	return results
}
