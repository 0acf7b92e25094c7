package offcut

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/model"
)

func planWithFree(sheet model.SourceSheet, free ...model.FreeSpace) model.CuttingPlan {
	return model.CuttingPlan{Sheets: []model.UsedSheet{{Index: 0, Sheet: sheet, FreeSpaces: free}}}
}

func freeSpace(x, y, l, w float64) model.FreeSpace {
	return model.FreeSpace{
		ID:         "fs",
		Position:   model.Position{X: x, Y: y},
		Dimensions: model.Dimensions{Length: l, Width: w},
	}
}

func TestExtract_ThresholdsAndNormalisation(t *testing.T) {
	params := model.DefaultParams() // 300 x 100 minimum
	sheet := model.NewSheet("mdf", 2800, 2070, 1)
	sheet.Thickness = 18
	sheet.PricePerSheet = 57.96

	plan := planWithFree(sheet,
		freeSpace(0, 600, 200, 1400), // long 1400, short 200
		freeSpace(900, 0, 299, 299),  // long side too short
		freeSpace(0, 0, 1000, 99),    // short side too short
		freeSpace(0, 0, 300, 100),    // exactly at the minimum
	)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := ExtractAt(plan, params, now)

	require.Len(t, got, 2)
	assert.Equal(t, model.Dimensions{Length: 1400, Width: 200}, got[0].Dimensions, "grain-free leftovers are laid long side first")
	assert.Equal(t, model.Position{X: 0, Y: 600}, got[0].Position)
	assert.Equal(t, "mdf", got[0].MaterialID)
	assert.Equal(t, 18.0, got[0].Thickness)
	assert.Equal(t, sheet.ID, got[0].ParentSheetID)
	assert.Equal(t, model.OffcutAvailable, got[0].State)
	assert.Equal(t, now, got[0].CreatedAt)
	assert.InDelta(t, 1400*200/(2800*2070.0)*57.96, got[0].Price, 1e-9)
	assert.Equal(t, model.Dimensions{Length: 300, Width: 100}, got[1].Dimensions)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestExtract_GrainKeepsAxes(t *testing.T) {
	sheet := model.NewSheet("oak", 2800, 2070, 1)
	sheet.HasGrain = true
	got := Extract(planWithFree(sheet, freeSpace(0, 0, 200, 1400)), model.DefaultParams())

	require.Len(t, got, 1)
	assert.Equal(t, model.Dimensions{Length: 200, Width: 1400}, got[0].Dimensions)
	assert.True(t, got[0].HasGrain)
}

func TestCriteria(t *testing.T) {
	o := model.ReusableOffcut{
		ID:         "a",
		MaterialID: "mdf",
		Thickness:  18,
		Dimensions: model.Dimensions{Length: 800, Width: 300},
		State:      model.OffcutAvailable,
	}

	assert.True(t, Criteria{}.Matches(o))
	assert.True(t, Criteria{MaterialID: "mdf", Thickness: 18, MinLength: 800, MinWidth: 300}.Matches(o))
	assert.False(t, Criteria{MaterialID: "oak"}.Matches(o))
	assert.False(t, Criteria{Thickness: 19}.Matches(o))
	assert.False(t, Criteria{MinLength: 300, MinWidth: 800}.Matches(o))
	assert.True(t, Criteria{MinLength: 300, MinWidth: 800, AllowRotation: true}.Matches(o))

	o.HasGrain = true
	assert.False(t, Criteria{MinLength: 300, MinWidth: 800, AllowRotation: true}.Matches(o), "grained offcuts are not turned")

	o.State = model.OffcutReserved
	assert.False(t, Criteria{}.Matches(o))
	assert.True(t, Criteria{States: []model.OffcutState{model.OffcutReserved}}.Matches(o))

	o.State = model.OffcutReleased
	assert.True(t, Criteria{}.Matches(o), "released offcuts are allocatable again")
}

func TestSortForConsumption(t *testing.T) {
	offcuts := []model.ReusableOffcut{
		{ID: "big", Dimensions: model.Dimensions{Length: 1000, Width: 1000}},
		{ID: "b", Dimensions: model.Dimensions{Length: 400, Width: 100}},
		{ID: "a", Dimensions: model.Dimensions{Length: 200, Width: 200}},
	}
	SortForConsumption(offcuts)
	assert.Equal(t, "a", offcuts[0].ID)
	assert.Equal(t, "b", offcuts[1].ID)
	assert.Equal(t, "big", offcuts[2].ID)
}

func TestOffcutRoundTrip(t *testing.T) {
	params := model.DefaultParams()
	sheet := model.NewSheet("mdf", 2800, 2070, 0)
	door := model.NewPiece("door", 2000, 1500, 1)

	first, err := engine.New(params).Optimize([]model.CuttingPiece{door}, []model.SourceSheet{sheet})
	require.NoError(t, err)
	offcuts := Extract(first, params)
	require.NotEmpty(t, offcuts)

	// A piece that fits one of the leftovers must be cut from it, not from a new sheet.
	shelf := model.NewPiece("shelf", 700, 300, 1)
	sheets := append(ToSourceSheets(offcuts), sheet)
	second, err := engine.New(params).Optimize([]model.CuttingPiece{shelf}, sheets)
	require.NoError(t, err)

	require.Len(t, second.Sheets, 1)
	used := second.Sheets[0].Sheet
	assert.True(t, used.IsOffcut)
	assert.Equal(t, []string{used.OffcutID}, Consumed(second))
	require.NoError(t, engine.VerifyPlan(second, []model.CuttingPiece{shelf}, params))
}
