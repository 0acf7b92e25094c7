package engine

import (
	"fmt"
	"math"

	"github.com/piwi3910/cutplan/internal/model"
)

// SheetPacking is the outcome of packing pieces onto one sheet.
type SheetPacking struct {
	Placements []model.Placement
	FreeRects  []model.FreeSpace // The packer's own free list
	Disjoint   bool              // Whether FreeRects partition the free area
	Cuts       []model.Cut
	Unplaced   []model.CuttingPiece // In input order
}

// PlacedArea returns the summed area of the placements.
func (sp SheetPacking) PlacedArea() float64 {
	var total float64
	for _, p := range sp.Placements {
		total += p.Area()
	}
	return total
}

// PackingStrategy places an ordered list of piece units onto one sheet.
type PackingStrategy interface {
	Name() string
	Pack(sheet model.SourceSheet, sheetIndex int, pieces []model.CuttingPiece, params model.OptimizationParams) SheetPacking
}

// StrategyConfig names one algorithm and heuristic combination.
type StrategyConfig struct {
	Name              string                  `json:"name"`
	Algorithm         model.Algorithm         `json:"algorithm"`
	GuillotineFit     model.GuillotineFit     `json:"guillotineFit,omitempty"`
	GuillotineSplit   model.SplitRule         `json:"guillotineSplit,omitempty"`
	MaxRectsHeuristic model.MaxRectsHeuristic `json:"maxRectsHeuristic,omitempty"`
	SortOrder         model.SortOrder         `json:"sortOrder"`
}

// NewConfig builds a config with a derived name.
func NewConfig(algo model.Algorithm, fit model.GuillotineFit, split model.SplitRule, heur model.MaxRectsHeuristic, order model.SortOrder) StrategyConfig {
	c := StrategyConfig{Algorithm: algo, SortOrder: order}
	switch algo {
	case model.AlgorithmGuillotine:
		c.GuillotineFit, c.GuillotineSplit = fit, split
		c.Name = fmt.Sprintf("guillotine:%s:%s:%s", fit, split, order)
	case model.AlgorithmMaxRects:
		c.MaxRectsHeuristic = heur
		c.Name = fmt.Sprintf("maxrects:%s:%s", heur, order)
	default:
		c.Name = fmt.Sprintf("%s:%s", algo, order)
	}
	return c
}

// ConfigFromParams returns the config selected by the run parameters.
func ConfigFromParams(p model.OptimizationParams) StrategyConfig {
	return NewConfig(p.Algorithm, p.GuillotineFit, p.GuillotineSplit, p.MaxRectsHeuristic, p.SortOrder)
}

// WithSortOrder returns a copy of the config using another sort order.
func (c StrategyConfig) WithSortOrder(order model.SortOrder) StrategyConfig {
	return NewConfig(c.Algorithm, c.GuillotineFit, c.GuillotineSplit, c.MaxRectsHeuristic, order)
}

// Strategy returns the packer implementing the config.
func (c StrategyConfig) Strategy() PackingStrategy {
	switch c.Algorithm {
	case model.AlgorithmShelf:
		return Shelf{}
	case model.AlgorithmMaxRects:
		return MaxRects{Heuristic: c.MaxRectsHeuristic}
	default:
		return Guillotine{Fit: c.GuillotineFit, Split: c.GuillotineSplit}
	}
}

// QuickConfigs is the small curated set used for latency-sensitive calls.
func QuickConfigs() []StrategyConfig {
	return []StrategyConfig{
		NewConfig(model.AlgorithmGuillotine, model.FitBestArea, model.SplitShorterLeftoverAxis, "", model.SortAreaDesc),
		NewConfig(model.AlgorithmGuillotine, model.FitBestShortSide, model.SplitLongerLeftoverAxis, "", model.SortLongSideDesc),
		NewConfig(model.AlgorithmMaxRects, "", "", model.MaxRectsBestShortSide, model.SortAreaDesc),
		NewConfig(model.AlgorithmMaxRects, "", "", model.MaxRectsContactPoint, model.SortLongSideDesc),
	}
}

// FullConfigs is every algorithm with each of its heuristics under four sort orders.
func FullConfigs() []StrategyConfig {
	orders := []model.SortOrder{model.SortAreaDesc, model.SortLongSideDesc, model.SortPerimeterDesc, model.SortWidthDesc}
	fits := []model.GuillotineFit{model.FitBestArea, model.FitBestShortSide, model.FitBestLongSide, model.FitFirst}
	splits := []model.SplitRule{
		model.SplitShorterLeftoverAxis, model.SplitLongerLeftoverAxis, model.SplitMinimizeArea,
		model.SplitMaximizeArea, model.SplitShorterAxis, model.SplitLongerAxis,
	}
	heuristics := []model.MaxRectsHeuristic{
		model.MaxRectsBestShortSide, model.MaxRectsBestLongSide, model.MaxRectsBestArea,
		model.MaxRectsBottomLeft, model.MaxRectsContactPoint,
	}

	var out []StrategyConfig
	for _, order := range orders {
		for _, fit := range fits {
			for _, split := range splits {
				out = append(out, NewConfig(model.AlgorithmGuillotine, fit, split, "", order))
			}
		}
		for _, h := range heuristics {
			out = append(out, NewConfig(model.AlgorithmMaxRects, "", "", h, order))
		}
		out = append(out, NewConfig(model.AlgorithmShelf, "", "", "", order))
	}
	return out
}

// candidate is a scored placement option. Lower scores win; ties go to lower y,
// then lower x, then the unrotated orientation.
type candidate struct {
	ok        bool
	primary   float64
	secondary float64
	x, y      float64
	freeIndex int
	orient    Orientation
}

func (c candidate) better(than candidate) bool {
	if !than.ok {
		return true
	}
	if d := c.primary - than.primary; math.Abs(d) > 1e-9 {
		return d < 0
	}
	if d := c.secondary - than.secondary; math.Abs(d) > 1e-9 {
		return d < 0
	}
	if math.Abs(c.y-than.y) > eps {
		return c.y < than.y
	}
	if math.Abs(c.x-than.x) > eps {
		return c.x < than.x
	}
	return !c.orient.Rotated && than.orient.Rotated
}

func newPlacement(p model.CuttingPiece, c candidate, sheetIndex int) model.Placement {
	unit := p
	unit.Quantity = 1
	return model.Placement{
		Piece:           unit,
		Position:        model.Position{X: c.x, Y: c.y},
		Rotated:         c.orient.Rotated,
		FinalDimensions: c.orient.Dimensions,
		SheetIndex:      sheetIndex,
	}
}

func horizontalCut(y, x0, x1, kerf float64) model.Cut {
	return model.Cut{Orientation: model.CutHorizontal, Position: y, Start: x0, End: x1, Kerf: kerf}
}

func verticalCut(x, y0, y1, kerf float64) model.Cut {
	return model.Cut{Orientation: model.CutVertical, Position: x, Start: y0, End: y1, Kerf: kerf}
}

func usableRect(s model.SourceSheet) rect {
	u := s.UsableDimensions()
	return rect{w: u.Length, h: u.Width}
}

func freeSpacesFrom(rects []rect, sheetIndex int) []model.FreeSpace {
	out := make([]model.FreeSpace, 0, len(rects))
	for i, r := range rects {
		out = append(out, r.freeSpace(freeSpaceID(sheetIndex, i)))
	}
	return out
}

func freeSpaceID(sheetIndex, n int) string {
	return fmt.Sprintf("fs-%d-%d", sheetIndex, n)
}
