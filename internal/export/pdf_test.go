package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/model"
)

// buildTestPlan optimizes a small kitchen job: five placed units, one oversize unit.
func buildTestPlan(t *testing.T) (model.CuttingPlan, model.OptimizationParams) {
	t.Helper()
	door := model.NewPiece("Door", 800, 600, 1)
	door.ID = "door"
	door.Edging = model.EdgeBanding{Top: true, Bottom: true}
	shelf := model.NewPiece("Shelf", 600, 350, 4)
	shelf.ID = "shelf"
	huge := model.NewPiece("Huge", 3000, 3000, 1)
	huge.ID = "huge"

	sheet := model.NewSheet("mdf", 2800, 2070, 1)
	sheet.Trim = model.Trim{Top: 10, Left: 10, Bottom: 10, Right: 10}
	sheet.PricePerSheet = 60

	params := model.DefaultParams()
	plan, err := engine.New(params).Optimize([]model.CuttingPiece{door, shelf, huge}, []model.SourceSheet{sheet})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if plan.Stats.PlacedPieces != 5 || len(plan.UnplacedPieces) != 1 {
		t.Fatalf("unexpected test plan: %d placed, %d unplaced", plan.Stats.PlacedPieces, len(plan.UnplacedPieces))
	}
	return plan, params
}

func TestWritePDF(t *testing.T) {
	plan, params := buildTestPlan(t)

	var buf bytes.Buffer
	if err := WritePDF(&buf, plan, params); err != nil {
		t.Fatalf("WritePDF failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
	if buf.Len() < 500 {
		t.Errorf("PDF suspiciously small: %d bytes", buf.Len())
	}
}

func TestExportPDF_File(t *testing.T) {
	plan, params := buildTestPlan(t)
	path := filepath.Join(t.TempDir(), "plan.pdf")

	if err := ExportPDF(path, plan, params); err != nil {
		t.Fatalf("ExportPDF failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output file not created: %v", err)
	}
	if info.Size() < 500 {
		t.Errorf("PDF suspiciously small: %d bytes", info.Size())
	}
}

func TestWritePDF_NoSheets(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, model.CuttingPlan{}, model.DefaultParams()); err == nil {
		t.Error("expected an error for a plan without sheets")
	}
}

func TestExportPDF_BadPath(t *testing.T) {
	plan, params := buildTestPlan(t)
	if err := ExportPDF(filepath.Join(t.TempDir(), "missing", "plan.pdf"), plan, params); err == nil {
		t.Error("expected an error for an unwritable path")
	}
}

func TestPalette(t *testing.T) {
	plan, _ := buildTestPlan(t)
	pal := newPalette(plan)

	r1, g1, b1 := pal.rgb("door")
	r2, g2, b2 := pal.rgb("shelf")
	if r1 == r2 && g1 == g2 && b1 == b2 {
		t.Error("distinct pieces should get distinct colours")
	}
	if a, b := pal.hex("unknown"), pal.hex("unknown"); a != b || len(a) != 7 {
		t.Errorf("unknown IDs need a stable colour, got %q and %q", a, b)
	}
}

func TestGroupUnits(t *testing.T) {
	a := model.CuttingPiece{ID: "a", Quantity: 1}
	b := model.CuttingPiece{ID: "b", Quantity: 2}
	rows := groupUnits([]model.CuttingPiece{a, b, a})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].piece.ID != "a" || rows[0].count != 2 || rows[1].count != 2 {
		t.Errorf("unexpected rows %+v", rows)
	}
}
