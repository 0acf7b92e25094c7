package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// Workbook sheet names.
const (
	xlsxCutList = "Cut List"
	xlsxSheets  = "Sheets"
	xlsxOffcuts = "Offcuts"
)

// WriteXLSX writes a workbook with a cut list, a per-sheet summary and the reusable offcuts.
func WriteXLSX(w io.Writer, plan model.CuttingPlan, offcuts []model.ReusableOffcut) error {
	f, err := buildWorkbook(plan, offcuts)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportXLSX saves the workbook to path.
func ExportXLSX(path string, plan model.CuttingPlan, offcuts []model.ReusableOffcut) error {
	f, err := buildWorkbook(plan, offcuts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(plan model.CuttingPlan, offcuts []model.ReusableOffcut) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), xlsxCutList); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{xlsxSheets, xlsxOffcuts} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	var rows [][]any
	for _, us := range plan.Sheets {
		for _, p := range us.Placements {
			rows = append(rows, []any{
				us.Index + 1, p.Piece.ID, pieceName(p.Piece),
				p.FinalDimensions.Length, p.FinalDimensions.Width,
				p.Position.X, p.Position.Y, yesNo(p.Rotated), p.Piece.Edging.String(),
			})
		}
	}
	for _, u := range plan.UnplacedPieces {
		d := u.ExpandedDimensions()
		rows = append(rows, []any{"unplaced", u.ID, pieceName(u), d.Length, d.Width, "", "", "", u.Edging.String()})
	}
	if err := writeTable(f, xlsxCutList, bold,
		[]any{"Sheet", "Piece ID", "Name", "Length", "Width", "X", "Y", "Rotated", "Edging"}, rows); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, us := range plan.Sheets {
		rows = append(rows, []any{
			us.Index + 1, us.Sheet.Label(), us.Sheet.IsOffcut, len(us.Placements), len(us.Cuts),
			round1(us.Efficiency), us.Sheet.Cost(),
		})
	}
	if err := writeTable(f, xlsxSheets, bold,
		[]any{"Sheet", "Stock", "Offcut", "Pieces", "Cuts", "Efficiency %", "Cost"}, rows); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, o := range offcuts {
		rows = append(rows, []any{
			o.ID, o.ParentSheetIndex + 1, o.MaterialID, o.Dimensions.Length, o.Dimensions.Width,
			o.Position.X, o.Position.Y, round1(o.Price), string(o.State),
		})
	}
	if err := writeTable(f, xlsxOffcuts, bold,
		[]any{"Offcut ID", "Sheet", "Material", "Length", "Width", "X", "Y", "Price", "State"}, rows); err != nil {
		return nil, err
	}
	return f, nil
}

func writeTable(f *excelize.File, sheet string, headerStyle int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		f.Close()
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
