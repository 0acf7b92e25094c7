package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
)

func TestCollectLabelInfos(t *testing.T) {
	plan, _ := buildTestPlan(t)
	labels := CollectLabelInfos(plan)

	if len(labels) != 5 {
		t.Fatalf("expected 5 labels, got %d", len(labels))
	}
	doors := 0
	for _, l := range labels {
		if l.SheetIndex != 1 {
			t.Errorf("expected 1-based sheet index 1, got %d", l.SheetIndex)
		}
		if l.Material != "" {
			t.Errorf("pieces carry no material, got %q", l.Material)
		}
		if l.PieceID == "door" {
			doors++
			if l.Edging != "Edge: T+B" {
				t.Errorf("unexpected edging %q", l.Edging)
			}
		}
	}
	if doors != 1 {
		t.Errorf("expected one door label, got %d", doors)
	}
}

func TestLabelInfo_JSON(t *testing.T) {
	info := LabelInfo{PieceID: "p1", Name: "Side", Length: 600, Width: 400, SheetIndex: 2, Rotated: true}
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "name", "length_mm", "width_mm", "sheet", "rotated"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("QR payload missing %q", key)
		}
	}
	if _, ok := decoded["material"]; ok {
		t.Error("empty material should be omitted")
	}
}

func TestWriteLabels(t *testing.T) {
	plan, _ := buildTestPlan(t)
	var buf bytes.Buffer
	if err := WriteLabels(&buf, plan); err != nil {
		t.Fatalf("WriteLabels failed: %v", err)
	}
	if buf.Len() < 500 {
		t.Errorf("label PDF suspiciously small: %d bytes", buf.Len())
	}
}

func TestExportLabels_MultiplePages(t *testing.T) {
	us := model.UsedSheet{Sheet: model.NewSheet("ply", 2440, 1220, 1)}
	for i := 0; i < labelsPerPage+5; i++ {
		p := model.NewPiece(fmt.Sprintf("Piece with a rather long descriptive name %d", i), 100, 50, 1)
		us.Placements = append(us.Placements, model.Placement{
			Piece:           p,
			Position:        model.Position{X: float64(i%20) * 110, Y: float64(i/20) * 60},
			FinalDimensions: p.Dimensions,
		})
	}
	plan := model.CuttingPlan{Sheets: []model.UsedSheet{us}}

	path := filepath.Join(t.TempDir(), "labels.pdf")
	if err := ExportLabels(path, plan); err != nil {
		t.Fatalf("ExportLabels failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() < 1000 {
		t.Errorf("expected a multi-page label file, got %v", err)
	}
}

func TestWriteLabels_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLabels(&buf, model.CuttingPlan{}); err == nil {
		t.Error("expected an error when nothing was placed")
	}
}
