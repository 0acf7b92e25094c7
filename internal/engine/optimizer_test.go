package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

func defaultTestParams() model.OptimizationParams {
	p := model.DefaultParams()
	// Simplify for testing: no kerf
	p.KerfWidth = 0
	return p
}

func piece(name string, length, width float64, qty int) model.CuttingPiece {
	p := model.NewPiece(name, length, width, qty)
	p.ID = name
	return p
}

func sheet(id string, length, width float64, qty int) model.SourceSheet {
	s := model.NewSheet("", length, width, qty)
	s.ID = id
	return s
}

// randomPieces builds a reproducible mixed piece list.
func randomPieces(seed int64, n int, minSide, maxSide float64) []model.CuttingPiece {
	rng := rand.New(rand.NewSource(seed))
	out := make([]model.CuttingPiece, n)
	for i := range out {
		l := math.Round(minSide + rng.Float64()*(maxSide-minSide))
		w := math.Round(minSide + rng.Float64()*(maxSide-minSide))
		p := piece(string(rune('a'+i%26))+string(rune('0'+i/26)), l, w, 1+rng.Intn(3))
		if rng.Intn(4) == 0 {
			p.HasGrain = true
			p.CanRotate = rng.Intn(2) == 0
		}
		out[i] = p
	}
	return out
}

func TestOptimize_SingleSheetSinglePiece(t *testing.T) {
	opt := New(defaultTestParams())
	plan, err := opt.Optimize(
		[]model.CuttingPiece{piece("A", 500, 300, 1)},
		[]model.SourceSheet{sheet("s", 1000, 600, 1)},
	)
	require.NoError(t, err)

	assert.Len(t, plan.Sheets, 1)
	assert.Empty(t, plan.UnplacedPieces)
	require.Len(t, plan.Sheets[0].Placements, 1)
	pl := plan.Sheets[0].Placements[0]
	assert.Equal(t, "A", pl.Piece.ID)
	assert.Equal(t, model.Position{X: 0, Y: 0}, pl.Position)
	assert.False(t, pl.Rotated, "ties between orientations go to unrotated")
	assert.Equal(t, 1, pl.Piece.Quantity)
}

func TestOptimize_FiveUnitsOnOneSheet(t *testing.T) {
	params := model.DefaultParams()
	params.KerfWidth = 4
	pieces := []model.CuttingPiece{piece("door", 800, 600, 1), piece("shelf", 600, 350, 4)}
	sheets := []model.SourceSheet{sheet("s", 2800, 2070, 1)}

	plan, err := New(params).Optimize(pieces, sheets)
	require.NoError(t, err)

	require.Len(t, plan.Sheets, 1)
	assert.Empty(t, plan.UnplacedPieces)
	assert.Equal(t, 5, plan.Stats.PlacedPieces)
	want := (800.0*600 + 4*600*350) / (2800 * 2070) * 100
	assert.InDelta(t, want, plan.Stats.GlobalEfficiency, 1e-9)
	assert.InDelta(t, want, plan.Sheets[0].Efficiency, 1e-9)
	require.NoError(t, VerifyPlan(plan, pieces, params))
}

func TestOptimize_OversizePieceIsUnplacedWithoutError(t *testing.T) {
	params := model.DefaultParams()
	pieces := []model.CuttingPiece{piece("huge", 3000, 3000, 1), piece("ok", 500, 500, 2)}
	sheets := []model.SourceSheet{sheet("s", 2800, 2070, 0)}

	plan, err := New(params).Optimize(pieces, sheets)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.UnplacedCount("huge"))
	assert.Equal(t, 2, plan.PlacedCount("ok"))
	require.NoError(t, VerifyPlan(plan, pieces, params))

	only, err := New(params).Optimize(pieces[:1], sheets)
	require.NoError(t, err)
	assert.Empty(t, only.Sheets)
	assert.Equal(t, 0, only.Stats.PlacedPieces)
	assert.Equal(t, 1, only.UnplacedCount("huge"))
}

func TestOptimize_StrictFitRejectsOversize(t *testing.T) {
	params := model.DefaultParams()
	params.StrictFit = true
	_, err := New(params).Optimize(
		[]model.CuttingPiece{piece("huge", 3000, 3000, 1)},
		[]model.SourceSheet{sheet("s", 2800, 2070, 0)},
	)
	var oe *model.OptimizationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, model.ErrUnsatisfiable, oe.Kind)
	assert.Equal(t, "huge", oe.PieceID)
}

func TestOptimize_NoSheetsIsUnsatisfiable(t *testing.T) {
	_, err := New(model.DefaultParams()).Optimize([]model.CuttingPiece{piece("a", 10, 10, 1)}, nil)
	var oe *model.OptimizationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, model.ErrUnsatisfiable, oe.Kind)
}

func TestOptimize_DegenerateInputRejected(t *testing.T) {
	_, err := New(model.DefaultParams()).Optimize(
		[]model.CuttingPiece{piece("flat", 100, 0, 1)},
		[]model.SourceSheet{sheet("s", 1000, 1000, 1)},
	)
	var oe *model.OptimizationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, model.ErrInvalidInput, oe.Kind)
}

func TestOptimize_GrainMismatchLeavesPieceUnplaced(t *testing.T) {
	params := model.DefaultParams()
	p := piece("veneer", 500, 300, 1)
	p.HasGrain, p.GrainDirection, p.CanRotate = true, model.GrainAlongLength, false
	s := sheet("oak", 2800, 2070, 1)
	s.HasGrain, s.GrainDirection = true, model.GrainAlongWidth

	plan, err := New(params).Optimize([]model.CuttingPiece{p}, []model.SourceSheet{s})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.UnplacedCount("veneer"))
	assert.Empty(t, plan.Sheets)

	p.CanRotate = true
	plan, err = New(params).Optimize([]model.CuttingPiece{p}, []model.SourceSheet{s})
	require.NoError(t, err)
	require.Len(t, plan.Sheets, 1)
	pl := plan.Sheets[0].Placements[0]
	assert.True(t, pl.Rotated, "grain across the sheet needs the piece turned")
	assert.Equal(t, model.Dimensions{Length: 300, Width: 500}, pl.FinalDimensions)
}

func TestOptimize_OffcutConsumedBeforeFreshSheet(t *testing.T) {
	params := model.DefaultParams()
	fresh := sheet("fresh", 2800, 2070, 0)
	fresh.MaterialID = "mdf"
	offcut := model.ReusableOffcut{
		ID:         "oc-1",
		MaterialID: "mdf",
		Dimensions: model.Dimensions{Length: 650, Width: 400},
		State:      model.OffcutAvailable,
	}
	pieces := []model.CuttingPiece{piece("a", 600, 350, 1), piece("b", 600, 350, 1)}

	plan, err := New(params).Optimize(pieces, []model.SourceSheet{fresh, offcut.ToSourceSheet()})
	require.NoError(t, err)

	require.Len(t, plan.Sheets, 2)
	assert.True(t, plan.Sheets[0].Sheet.IsOffcut, "offcut should be used first")
	assert.Equal(t, "oc-1", plan.Sheets[0].Sheet.OffcutID)
	assert.Len(t, plan.Sheets[0].Placements, 1)
	assert.False(t, plan.Sheets[1].Sheet.IsOffcut)
	require.NoError(t, VerifyPlan(plan, pieces, params))
}

func TestOptimize_SelectsSmallestAdequateSheet(t *testing.T) {
	opt := New(defaultTestParams())
	pieces := []model.CuttingPiece{piece("Small1", 400, 200, 1), piece("Small2", 300, 200, 1)}
	sheets := []model.SourceSheet{sheet("large", 2440, 1220, 2), sheet("small", 1220, 610, 2)}

	plan, err := opt.Optimize(pieces, sheets)
	require.NoError(t, err)
	require.Empty(t, plan.UnplacedPieces)
	require.Len(t, plan.Sheets, 1)
	assert.Equal(t, "small", plan.Sheets[0].Sheet.ID, "should use the small sheet")
}

func TestOptimize_LargePieceForcesLargeSheet(t *testing.T) {
	opt := New(defaultTestParams())
	pieces := []model.CuttingPiece{piece("Big", 2000, 1000, 1)}
	sheets := []model.SourceSheet{sheet("small", 1220, 610, 1), sheet("large", 2440, 1220, 1)}

	plan, err := opt.Optimize(pieces, sheets)
	require.NoError(t, err)
	require.Empty(t, plan.UnplacedPieces)
	require.Len(t, plan.Sheets, 1)
	assert.Equal(t, "large", plan.Sheets[0].Sheet.ID)
}

func TestOptimize_RespectsAvailableQuantity(t *testing.T) {
	params := defaultTestParams()
	pieces := []model.CuttingPiece{piece("half", 500, 1000, 5)}
	sheets := []model.SourceSheet{sheet("s", 1000, 1000, 2)}

	plan, err := New(params).Optimize(pieces, sheets)
	require.NoError(t, err)
	assert.Len(t, plan.Sheets, 2)
	assert.Equal(t, 4, plan.PlacedCount("half"))
	assert.Equal(t, 1, plan.UnplacedCount("half"))
	require.NoError(t, VerifyPlan(plan, pieces, params))
}

func TestOptimize_UnlimitedQuantity(t *testing.T) {
	params := defaultTestParams()
	pieces := []model.CuttingPiece{piece("half", 500, 1000, 7)}
	plan, err := New(params).Optimize(pieces, []model.SourceSheet{sheet("s", 1000, 1000, 0)})
	require.NoError(t, err)
	assert.Len(t, plan.Sheets, 4)
	assert.Empty(t, plan.UnplacedPieces)
	assert.Equal(t, 4, plan.Stats.AreaLowerBoundSheets)
}

func TestOptimize_MaterialAware(t *testing.T) {
	params := model.DefaultParams()
	oakPiece := piece("oak-door", 700, 400, 2)
	oakPiece.MaterialID = "oak"
	anyPiece := piece("spacer", 200, 100, 2)
	mdf := sheet("mdf", 1200, 800, 0)
	mdf.MaterialID = "mdf"
	oak := sheet("oak", 1600, 900, 0)
	oak.MaterialID = "oak"

	pieces := []model.CuttingPiece{oakPiece, anyPiece}
	plan, err := New(params).Optimize(pieces, []model.SourceSheet{mdf, oak})
	require.NoError(t, err)
	require.Empty(t, plan.UnplacedPieces)
	for _, us := range plan.Sheets {
		for _, pl := range us.Placements {
			if pl.Piece.MaterialID == "oak" {
				assert.Equal(t, "oak", us.Sheet.MaterialID)
			}
		}
	}
	require.NoError(t, VerifyPlan(plan, pieces, params))
}

func TestOptimize_TrimShiftsUsableArea(t *testing.T) {
	params := model.DefaultParams()
	params.KerfWidth = 4
	s := sheet("s", 1000, 1000, 1)
	s.Trim = model.Trim{Top: 10, Left: 10, Bottom: 10, Right: 10}
	pieces := []model.CuttingPiece{piece("max", 976, 976, 1)}

	plan, err := New(params).Optimize(pieces, []model.SourceSheet{s})
	require.NoError(t, err)
	require.Len(t, plan.Sheets, 1)
	assert.InDelta(t, 980*980, plan.Sheets[0].UsableArea, 1e-9)
	require.NoError(t, VerifyPlan(plan, pieces, params))

	tooBig := []model.CuttingPiece{piece("over", 977, 976, 1)}
	plan, err = New(params).Optimize(tooBig, []model.SourceSheet{s})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.UnplacedCount("over"), "piece plus kerf must stay inside the trimmed area")
}

func TestOptimize_Deterministic(t *testing.T) {
	params := model.DefaultParams()
	pieces := randomPieces(11, 12, 80, 900)
	sheets := []model.SourceSheet{sheet("a", 2800, 2070, 0), sheet("b", 1220, 610, 3)}

	for _, algo := range []model.Algorithm{model.AlgorithmGuillotine, model.AlgorithmShelf, model.AlgorithmMaxRects} {
		params.Algorithm = algo
		first, err := New(params).Optimize(pieces, sheets)
		require.NoError(t, err)
		second, err := New(params).Optimize(pieces, sheets)
		require.NoError(t, err)
		assert.Equal(t, first, second, "algorithm %s", algo)
	}
}

func TestOptimize_InvariantsHoldForEveryConfig(t *testing.T) {
	params := model.DefaultParams()
	params.KerfWidth = 3.2
	pieces := randomPieces(3, 10, 60, 1100)
	grainSheet := sheet("oak", 2800, 2070, 2)
	grainSheet.HasGrain = true
	grainSheet.Trim = model.Trim{Top: 5, Left: 5, Bottom: 5, Right: 5}
	sheets := []model.SourceSheet{grainSheet, sheet("mdf", 1830, 1220, 0)}

	for _, cfg := range FullConfigs() {
		opt := New(params)
		j, err := opt.prepare(pieces, sheets)
		require.NoError(t, err)
		plan, err := opt.run(context.Background(), j, SortPieces(j.units, cfg.SortOrder), opt.configPacker(cfg, false))
		require.NoError(t, err)
		require.NoError(t, VerifyPlan(plan, pieces, params), cfg.Name)
		for _, us := range plan.Sheets {
			assert.Positive(t, len(us.Placements), cfg.Name)
			assert.Equal(t, cfg.Name, us.Algorithm)
		}
	}
}

func TestOptimizeWithIterations_NotWorseThanSinglePass(t *testing.T) {
	params := model.DefaultParams()
	pieces := randomPieces(5, 14, 100, 1000)
	sheets := []model.SourceSheet{sheet("s", 2440, 1220, 0)}

	single, err := New(params).Optimize(pieces, sheets)
	require.NoError(t, err)
	iter, err := New(params).OptimizeWithIterations(context.Background(), pieces, sheets)
	require.NoError(t, err)

	assert.False(t, betterPlan(single, iter), "iterations must never lose to the single pass")
	assert.NotEmpty(t, iter.Strategy)
	require.NoError(t, VerifyPlan(iter, pieces, params))
}

func TestOptimizeWithIterations_Genetic(t *testing.T) {
	params := model.DefaultParams()
	params.Iterations = 2
	params.GeneticGenerations = 3
	pieces := randomPieces(9, 6, 150, 700)
	sheets := []model.SourceSheet{sheet("s", 1830, 1220, 0)}

	first, err := New(params).OptimizeWithIterations(context.Background(), pieces, sheets)
	require.NoError(t, err)
	require.NoError(t, VerifyPlan(first, pieces, params))

	second, err := New(params).OptimizeWithIterations(context.Background(), pieces, sheets)
	require.NoError(t, err)
	assert.Equal(t, first, second, "seeded search must be reproducible")
}

func TestOptimizeWithIterations_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(model.DefaultParams()).OptimizeWithIterations(ctx,
		randomPieces(1, 5, 100, 500), []model.SourceSheet{sheet("s", 2440, 1220, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSmartOptimize(t *testing.T) {
	params := model.DefaultParams()
	pieces := randomPieces(21, 12, 100, 900)
	sheets := []model.SourceSheet{sheet("s", 2800, 2070, 0)}

	plan, err := New(params).SmartOptimize(context.Background(), pieces, sheets)
	require.NoError(t, err)
	assert.Equal(t, "smart", plan.Strategy)
	assert.Empty(t, plan.UnplacedPieces)
	require.NoError(t, VerifyPlan(plan, pieces, params))

	names := map[string]bool{}
	for _, c := range QuickConfigs() {
		names[c.Name] = true
	}
	for _, us := range plan.Sheets {
		assert.True(t, names[us.Algorithm], "sheet algorithm %q should come from the quick set", us.Algorithm)
	}
}

func TestBetterPlanOrdering(t *testing.T) {
	mk := func(placed, sheets int, eff, cost float64) model.CuttingPlan {
		return model.CuttingPlan{Stats: model.PlanStats{
			PlacedPieces: placed, TotalSheets: sheets, GlobalEfficiency: eff, TotalSheetCost: cost,
		}}
	}
	assert.True(t, betterPlan(mk(5, 3, 10, 9), mk(4, 1, 90, 1)), "placed pieces come first")
	assert.True(t, betterPlan(mk(5, 1, 10, 9), mk(5, 2, 90, 1)), "then fewer sheets")
	assert.True(t, betterPlan(mk(5, 1, 80, 9), mk(5, 1, 70, 1)), "then efficiency")
	assert.True(t, betterPlan(mk(5, 1, 80, 1), mk(5, 1, 80, 2)), "then cost")
	assert.False(t, betterPlan(mk(5, 1, 80, 1), mk(5, 1, 80, 1)), "equal plans keep config order")
}
