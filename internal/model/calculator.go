package model

import "math"

// AreaEstimate is a pure-area sheet estimate for a set of pieces on one sheet type.
type AreaEstimate struct {
	TotalPieceArea    float64 `json:"totalPieceArea"` // Kerf allowance included (sq mm)
	SheetArea         float64 `json:"sheetArea"`      // Usable area of one sheet
	SheetsNeededExact float64 `json:"sheetsNeededExact"`
	SheetsNeededMin   int     `json:"sheetsNeededMin"` // Ceiling of exact
	SheetsWithWaste   int     `json:"sheetsWithWaste"` // Including the waste factor
	WastePercent      float64 `json:"wastePercent"`
	EstimatedCost     float64 `json:"estimatedCost"`
}

// EstimateSheets computes how many sheets of the given type a cut list needs by area alone.
func EstimateSheets(pieces []CuttingPiece, sheet SourceSheet, kerf, wastePercent float64) AreaEstimate {
	total := kerfedPieceArea(pieces, kerf)
	sheetArea := sheet.UsableDimensions().Area()
	if sheetArea <= 0 {
		return AreaEstimate{TotalPieceArea: total, WastePercent: wastePercent}
	}

	exact := total / sheetArea
	minSheets := int(math.Ceil(exact))
	withWaste := int(math.Ceil(exact * (1.0 + wastePercent/100.0)))
	if withWaste < minSheets {
		withWaste = minSheets
	}
	return AreaEstimate{
		TotalPieceArea:    total,
		SheetArea:         sheetArea,
		SheetsNeededExact: exact,
		SheetsNeededMin:   minSheets,
		SheetsWithWaste:   withWaste,
		WastePercent:      wastePercent,
		EstimatedCost:     float64(withWaste) * sheet.Cost(),
	}
}

// AreaLowerBound returns the minimum number of sheets any plan needs, judged by
// area against the largest usable sheet. Kerf is not counted so the bound stays valid.
func AreaLowerBound(pieces []CuttingPiece, sheets []SourceSheet) int {
	var largest float64
	for _, s := range sheets {
		if a := s.UsableDimensions().Area(); a > largest {
			largest = a
		}
	}
	if largest <= 0 {
		return 0
	}
	total := kerfedPieceArea(pieces, 0)
	// Tolerate float noise so an exact fit does not round up.
	return int(math.Ceil(total/largest - 1e-9))
}

func kerfedPieceArea(pieces []CuttingPiece, kerf float64) float64 {
	var total float64
	for _, p := range pieces {
		d := p.ExpandedDimensions()
		total += (d.Length + kerf) * (d.Width + kerf) * float64(p.Quantity)
	}
	return total
}
