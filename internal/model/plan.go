package model

// Placement represents a single piece unit placed on a sheet.
type Placement struct {
	Piece           CuttingPiece `json:"piece"`
	Position        Position     `json:"position"`        // From the usable-area corner (mm)
	Rotated         bool         `json:"rotated"`         // Whether the piece was turned 90 degrees
	FinalDimensions Dimensions   `json:"finalDimensions"` // Post-rotation, expansion included
	SheetIndex      int          `json:"sheetIndex"`
}

// Area returns the area covered by the placed piece, kerf excluded.
func (p Placement) Area() float64 {
	return p.FinalDimensions.Area()
}

// FreeSpace is a rectangle of a sheet not covered by any placement.
type FreeSpace struct {
	ID         string     `json:"id"`
	Position   Position   `json:"position"`
	Dimensions Dimensions `json:"dimensions"`
}

// Area returns the free-space area in square mm.
func (f FreeSpace) Area() float64 {
	return f.Dimensions.Area()
}

// CutOrientation tells whether a cut runs along X or along Y.
type CutOrientation string

const (
	CutHorizontal CutOrientation = "horizontal" // Runs along X at a fixed Y
	CutVertical   CutOrientation = "vertical"   // Runs along Y at a fixed X
)

// Cut is a single straight cut line.
// A horizontal cut sits at Y=Position and spans X from Start to End.
// A vertical cut sits at X=Position and spans Y from Start to End.
type Cut struct {
	Orientation CutOrientation `json:"orientation"`
	Position    float64        `json:"position"`
	Start       float64        `json:"start"`
	End         float64        `json:"end"`
	Kerf        float64        `json:"kerf"`
}

// Length returns the length of the cut line.
func (c Cut) Length() float64 {
	return c.End - c.Start
}

// UsedSheet represents one source sheet with the pieces placed on it.
type UsedSheet struct {
	Index      int         `json:"index"`
	Sheet      SourceSheet `json:"sheet"`
	Algorithm  string      `json:"algorithm"`
	Placements []Placement `json:"placements"`
	FreeSpaces []FreeSpace `json:"freeSpaces"`
	Cuts       []Cut       `json:"cuts"`
	UsedArea   float64     `json:"usedArea"`
	UsableArea float64     `json:"usableArea"`
	Efficiency float64     `json:"efficiency"` // Percent of usable area covered by pieces
}

// Refresh recomputes the derived area fields.
func (us *UsedSheet) Refresh() {
	us.UsedArea = 0
	for _, p := range us.Placements {
		us.UsedArea += p.Area()
	}
	us.UsableArea = us.Sheet.UsableDimensions().Area()
	us.Efficiency = 0
	if us.UsableArea > 0 {
		us.Efficiency = us.UsedArea / us.UsableArea * 100.0
	}
}

// FreeArea returns the summed free-space area.
func (us UsedSheet) FreeArea() float64 {
	var total float64
	for _, f := range us.FreeSpaces {
		total += f.Area()
	}
	return total
}

// PlanStats holds the aggregate statistics of a plan.
type PlanStats struct {
	TotalPieces          int     `json:"totalPieces"`
	PlacedPieces         int     `json:"placedPieces"`
	TotalSheets          int     `json:"totalSheets"`
	GlobalEfficiency     float64 `json:"globalEfficiency"` // Percent
	TotalUsedArea        float64 `json:"totalUsedArea"`
	TotalWasteArea       float64 `json:"totalWasteArea"`
	TotalCuts            int     `json:"totalCuts"`
	TotalSheetCost       float64 `json:"totalSheetCost,omitempty"`
	AreaLowerBoundSheets int     `json:"areaLowerBoundSheets"`
}

// CuttingPlan holds the full solution.
type CuttingPlan struct {
	Sheets         []UsedSheet    `json:"sheets"`
	UnplacedPieces []CuttingPiece `json:"unplacedPieces"`
	Stats          PlanStats      `json:"stats"`
	Strategy       string         `json:"strategy,omitempty"`
}

// ComputeStats fills Stats from the sheets and unplaced pieces.
func (cp *CuttingPlan) ComputeStats() {
	st := PlanStats{TotalSheets: len(cp.Sheets)}
	var usable float64
	for i := range cp.Sheets {
		s := &cp.Sheets[i]
		s.Refresh()
		st.PlacedPieces += len(s.Placements)
		st.TotalUsedArea += s.UsedArea
		st.TotalCuts += len(s.Cuts)
		st.TotalSheetCost += s.Sheet.Cost()
		usable += s.UsableArea
	}
	st.TotalPieces = st.PlacedPieces + len(cp.UnplacedPieces)
	st.TotalWasteArea = usable - st.TotalUsedArea
	if usable > 0 {
		st.GlobalEfficiency = st.TotalUsedArea / usable * 100.0
	}
	st.AreaLowerBoundSheets = cp.Stats.AreaLowerBoundSheets
	cp.Stats = st
}

// PlacedCount returns the number of placed units of the given piece ID.
func (cp CuttingPlan) PlacedCount(pieceID string) int {
	n := 0
	for _, s := range cp.Sheets {
		for _, p := range s.Placements {
			if p.Piece.ID == pieceID {
				n++
			}
		}
	}
	return n
}

// UnplacedCount returns the number of unplaced units of the given piece ID.
func (cp CuttingPlan) UnplacedCount(pieceID string) int {
	n := 0
	for _, p := range cp.UnplacedPieces {
		if p.ID == pieceID {
			n += p.Quantity
		}
	}
	return n
}
