package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/table"

	"github.com/piwi3910/cutplan/internal/model"
)

// DXF layer names. Pieces go on PIECES so a re-import of the file skips the rest.
const (
	layerSheet  = "SHEET"
	layerTrim   = "TRIM"
	layerPieces = "PIECES"
	layerCuts   = "CUTS"
	layerFree   = "FREE"
	layerText   = "TEXT"
)

// sheetGap separates consecutive sheets laid out along X.
const sheetGap = 200.0

// ExportDXF writes the plan as a DXF drawing, sheets laid out left to right.
// Coordinates are in mm with the origin at the first sheet's corner.
func ExportDXF(path string, plan model.CuttingPlan) error {
	if len(plan.Sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}
	d := dxf.NewDrawing()
	for _, l := range []struct {
		name string
		cl   color.ColorNumber
	}{
		{layerSheet, color.White},
		{layerTrim, color.Yellow},
		{layerPieces, color.Green},
		{layerCuts, color.Red},
		{layerFree, color.Cyan},
		{layerText, color.White},
	} {
		if _, err := d.AddLayer(l.name, l.cl, table.LT_CONTINUOUS, false); err != nil {
			return fmt.Errorf("add layer %s: %w", l.name, err)
		}
	}

	originX := 0.0
	for _, us := range plan.Sheets {
		if err := drawSheet(d, us, originX); err != nil {
			return fmt.Errorf("sheet %d: %w", us.Index+1, err)
		}
		originX += us.Sheet.Dimensions.Length + sheetGap
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteDXF renders the plan as DXF to w.
func WriteDXF(w io.Writer, plan model.CuttingPlan) error {
	dir, err := os.MkdirTemp("", "cutplan-dxf")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "plan.dxf")
	if err := ExportDXF(path, plan); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func drawSheet(d *drawing.Drawing, us model.UsedSheet, originX float64) error {
	s := us.Sheet
	// usable-area origin in drawing coordinates
	ux, uy := originX+s.Trim.Left, s.Trim.Bottom

	if err := layerRect(d, layerSheet, originX, 0, s.Dimensions.Length, s.Dimensions.Width); err != nil {
		return err
	}
	if s.Trim != (model.Trim{}) {
		u := s.UsableDimensions()
		if err := layerRect(d, layerTrim, ux, uy, u.Length, u.Width); err != nil {
			return err
		}
	}
	if err := d.ChangeLayer(layerText); err != nil {
		return err
	}
	if _, err := d.Text(fmt.Sprintf("Sheet %d: %s", us.Index+1, s.Label()), originX, s.Dimensions.Width+20, 0, 30); err != nil {
		return err
	}

	for _, p := range us.Placements {
		x, y := ux+p.Position.X, uy+p.Position.Y
		if err := layerRect(d, layerPieces, x, y, p.FinalDimensions.Length, p.FinalDimensions.Width); err != nil {
			return err
		}
		if err := d.ChangeLayer(layerText); err != nil {
			return err
		}
		h := labelHeightFor(p.FinalDimensions)
		if _, err := d.Text(pieceName(p.Piece), x+5, y+5, 0, h); err != nil {
			return err
		}
	}

	if err := d.ChangeLayer(layerCuts); err != nil {
		return err
	}
	for _, c := range us.Cuts {
		var err error
		if c.Orientation == model.CutVertical {
			_, err = d.Line(ux+c.Position, uy+c.Start, 0, ux+c.Position, uy+c.End, 0)
		} else {
			_, err = d.Line(ux+c.Start, uy+c.Position, 0, ux+c.End, uy+c.Position, 0)
		}
		if err != nil {
			return err
		}
	}

	for _, f := range us.FreeSpaces {
		if err := layerRect(d, layerFree, ux+f.Position.X, uy+f.Position.Y, f.Dimensions.Length, f.Dimensions.Width); err != nil {
			return err
		}
	}
	return nil
}

// layerRect draws an axis-aligned rectangle as four lines on layer.
func layerRect(d *drawing.Drawing, layer string, x, y, l, w float64) error {
	if err := d.ChangeLayer(layer); err != nil {
		return err
	}
	corners := [5][2]float64{{x, y}, {x + l, y}, {x + l, y + w}, {x, y + w}, {x, y}}
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[i+1]
		if _, err := d.Line(a[0], a[1], 0, b[0], b[1], 0); err != nil {
			return err
		}
	}
	return nil
}

func labelHeightFor(d model.Dimensions) float64 {
	h := d.ShortSide() / 8
	if h > 40 {
		h = 40
	}
	if h < 5 {
		h = 5
	}
	return h
}
