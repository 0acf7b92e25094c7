package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/model"
)

func piece(id string, l, w float64, qty int) model.CuttingPiece {
	p := model.NewPiece(id, l, w, qty)
	p.ID = id
	return p
}

func sheet(id string, l, w float64, qty int) model.SourceSheet {
	s := model.NewSheet("mdf", l, w, qty)
	s.ID = id
	return s
}

func TestRun_Success(t *testing.T) {
	req := Request{
		Pieces: []model.CuttingPiece{piece("door", 800, 600, 1), piece("shelf", 600, 350, 4)},
		Sheets: []model.SourceSheet{sheet("s", 2800, 2070, 1)},
	}
	resp := Run(context.Background(), req, model.DefaultParams())

	require.True(t, resp.Success, resp.Message)
	require.NotNil(t, resp.Plan)
	assert.Nil(t, resp.Error)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, 5, resp.Plan.Stats.PlacedPieces)
	assert.Contains(t, resp.Message, "placed 5 of 5")
	assert.NotEmpty(t, resp.ReusableOffcuts, "a mostly empty sheet leaves reusable offcuts")
}

func TestRun_PartialPlacementWarns(t *testing.T) {
	req := Request{
		Pieces: []model.CuttingPiece{piece("huge", 3000, 3000, 1), piece("ok", 500, 500, 1)},
		Sheets: []model.SourceSheet{sheet("s", 2800, 2070, 0)},
	}
	resp := Run(context.Background(), req, model.DefaultParams())

	require.True(t, resp.Success)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "huge")
	assert.Equal(t, 1, resp.Plan.UnplacedCount("huge"))
}

func TestRun_OnlyOversizePiece(t *testing.T) {
	req := Request{
		Pieces: []model.CuttingPiece{piece("huge", 3000, 3000, 1)},
		Sheets: []model.SourceSheet{sheet("s", 2800, 2070, 0)},
	}
	resp := Run(context.Background(), req, model.DefaultParams())

	require.True(t, resp.Success)
	assert.Equal(t, 0, resp.Plan.Stats.PlacedPieces)
	assert.Len(t, resp.Warnings, 1)
}

func TestRun_StrictFitFails(t *testing.T) {
	strict := true
	req := Request{
		Pieces: []model.CuttingPiece{piece("huge", 3000, 3000, 1)},
		Sheets: []model.SourceSheet{sheet("s", 2800, 2070, 0)},
		Params: &model.ParamsPatch{StrictFit: &strict},
	}
	resp := Run(context.Background(), req, model.DefaultParams())

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Plan)
	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrUnsatisfiable, resp.Error.Kind)
	assert.Equal(t, "huge", resp.Error.PieceID)
	assert.True(t, resp.Params.StrictFit)
}

func TestRun_InvalidInput(t *testing.T) {
	resp := Run(context.Background(), Request{
		Pieces: []model.CuttingPiece{piece("zero", 0, 100, 1)},
		Sheets: []model.SourceSheet{sheet("s", 1000, 1000, 1)},
	}, model.DefaultParams())

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrInvalidInput, resp.Error.Kind)
}

func TestRun_NoSheets(t *testing.T) {
	resp := Run(context.Background(), Request{Pieces: []model.CuttingPiece{piece("a", 10, 10, 1)}}, model.DefaultParams())
	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrUnsatisfiable, resp.Error.Kind)
}

func TestRun_OffcutConsumedFirst(t *testing.T) {
	stock := []model.ReusableOffcut{
		{ID: "oc-1", MaterialID: "mdf", Dimensions: model.Dimensions{Length: 650, Width: 400}, State: model.OffcutAvailable},
		{ID: "oc-gone", MaterialID: "mdf", Dimensions: model.Dimensions{Length: 650, Width: 400}, State: model.OffcutUsed},
	}
	req := Request{
		Pieces:      []model.CuttingPiece{piece("a", 600, 350, 1), piece("b", 600, 350, 1)},
		Sheets:      []model.SourceSheet{sheet("fresh", 2800, 2070, 0)},
		UseOffcuts:  true,
		OffcutStock: stock,
	}
	resp := Run(context.Background(), req, model.DefaultParams())

	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Plan.Sheets, 2)
	assert.Equal(t, "oc-1", resp.Plan.Sheets[0].Sheet.OffcutID)
	assert.Equal(t, []string{"oc-1"}, resp.ConsumedOffcuts)
	assert.Contains(t, resp.Warnings, "1 offcuts skipped because they are not available")
}

func TestRun_ModesAgreeOnPlacement(t *testing.T) {
	base := Request{
		Pieces: []model.CuttingPiece{piece("a", 700, 400, 3), piece("b", 300, 300, 5)},
		Sheets: []model.SourceSheet{sheet("s", 2440, 1220, 0)},
	}
	for _, mode := range []string{"single", "iterations", "smart"} {
		req := base
		req.UseIterations = mode == "iterations"
		req.UseSmartOptimize = mode == "smart"
		resp := Run(context.Background(), req, model.DefaultParams())
		require.True(t, resp.Success, mode)
		assert.Equal(t, 8, resp.Plan.Stats.PlacedPieces, mode)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := Run(ctx, Request{
		Pieces:        []model.CuttingPiece{piece("a", 100, 100, 1)},
		Sheets:        []model.SourceSheet{sheet("s", 1000, 1000, 1)},
		UseIterations: true,
	}, model.DefaultParams())

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrInternal, resp.Error.Kind)
}

func TestRun_OwnerAdmitsOwnReservations(t *testing.T) {
	reserved := func(id, owner string) model.ReusableOffcut {
		return model.ReusableOffcut{ID: id, MaterialID: "mdf", Dimensions: model.Dimensions{Length: 650, Width: 400},
			State: model.OffcutReserved, ReservedBy: owner}
	}
	req := Request{
		Pieces:      []model.CuttingPiece{piece("a", 600, 350, 2)},
		Sheets:      []model.SourceSheet{sheet("fresh", 2800, 2070, 0)},
		UseOffcuts:  true,
		OffcutStock: []model.ReusableOffcut{reserved("oc-mine", "job-1"), reserved("oc-theirs", "job-2")},
		Owner:       "job-1",
	}
	resp := Run(context.Background(), req, model.DefaultParams())

	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, []string{"oc-mine"}, resp.ConsumedOffcuts)
	assert.Contains(t, resp.Warnings, "1 offcuts skipped because they are not available")
}
