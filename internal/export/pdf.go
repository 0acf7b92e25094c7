// Package export renders cutting plans to reports and machine-readable files.
package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/cutplan/internal/model"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// WritePDF renders one page per used sheet followed by a summary page.
func WritePDF(w io.Writer, plan model.CuttingPlan, params model.OptimizationParams) error {
	if len(plan.Sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pal := newPalette(plan)

	for _, us := range plan.Sheets {
		pdf.AddPage()
		renderSheetPage(pdf, us, pal)
	}
	pdf.AddPage()
	renderSummaryPage(pdf, plan, params)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the PDF report to path.
func ExportPDF(path string, plan model.CuttingPlan, params model.OptimizationParams) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePDF(f, plan, params); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// renderSheetPage draws a single used sheet on the current page.
func renderSheetPage(pdf *fpdf.Fpdf, us model.UsedSheet, pal *palette) {
	sheet := us.Sheet
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d: %s", us.Index+1, sheet.Label())
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Pieces: %d | Cuts: %d | Used: %.0f mm² of %.0f mm² | Efficiency: %.1f%% | %s",
		len(us.Placements), len(us.Cuts), us.UsedArea, us.UsableArea, us.Efficiency, us.Algorithm)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight
	scale := math.Min(drawWidth/sheet.Dimensions.Length, drawHeight/sheet.Dimensions.Width)

	canvasW := sheet.Dimensions.Length * scale
	canvasH := sheet.Dimensions.Width * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Whole sheet, trim included
	pdf.SetFillColor(235, 225, 205)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	// Usable area origin
	ux := offsetX + sheet.Trim.Left*scale
	uy := offsetY + sheet.Trim.Top*scale
	usable := sheet.UsableDimensions()
	if sheet.Trim != (model.Trim{}) {
		pdf.SetFillColor(210, 180, 140)
		pdf.SetLineWidth(0.2)
		pdf.Rect(ux, uy, usable.Length*scale, usable.Width*scale, "FD")
		drawHatchPattern(pdf, offsetX, offsetY, canvasW, sheet.Trim.Top*scale)
	}

	for _, fs := range us.FreeSpaces {
		pdf.SetFillColor(245, 245, 245)
		pdf.SetDrawColor(180, 180, 180)
		pdf.SetLineWidth(0.1)
		pdf.Rect(ux+fs.Position.X*scale, uy+fs.Position.Y*scale, fs.Dimensions.Length*scale, fs.Dimensions.Width*scale, "FD")
	}

	for _, p := range us.Placements {
		r, g, b := pal.rgb(p.Piece.ID)
		pw := p.FinalDimensions.Length * scale
		ph := p.FinalDimensions.Width * scale
		px := ux + p.Position.X*scale
		py := uy + p.Position.Y*scale

		pdf.SetFillColor(r, g, b)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)

			label := pieceName(p.Piece)
			dims := p.FinalDimensions.String()
			if p.Rotated {
				dims += " R"
			}
			labelW := pdf.GetStringWidth(label)
			dimsW := pdf.GetStringWidth(dims)
			if labelW < pw-2 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-4)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
			if ph > 14 && dimsW < pw-2 {
				pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
				pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
			}
		}
	}

	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)
	for _, c := range us.Cuts {
		if c.Orientation == model.CutHorizontal {
			pdf.Line(ux+c.Start*scale, uy+c.Position*scale, ux+c.End*scale, uy+c.Position*scale)
		} else {
			pdf.Line(ux+c.Position*scale, uy+c.Start*scale, ux+c.Position*scale, uy+c.End*scale)
		}
	}

	drawDimensionAnnotations(pdf, sheet, offsetX, offsetY, canvasW, canvasH)
	drawPiecesLegend(pdf, us, pal, offsetY+canvasH+5)
}

// drawHatchPattern draws diagonal lines inside a rectangle to mark unusable material.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	pdf.SetDrawColor(150, 120, 90)
	pdf.SetLineWidth(0.15)

	spacing := 4.0
	for d := spacing; d < w+h; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// drawDimensionAnnotations adds length and width labels outside the sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, sheet model.SourceSheet, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	lengthLabel := fmt.Sprintf("%.0f mm", sheet.Dimensions.Length)
	lw := pdf.GetStringWidth(lengthLabel)
	pdf.SetXY(offsetX+(canvasW-lw)/2, offsetY+canvasH+1)
	pdf.CellFormat(lw, 4, lengthLabel, "", 0, "C", false, 0, "")

	widthLabel := fmt.Sprintf("%.0f mm", sheet.Dimensions.Width)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	ww := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX-3-ww/2, offsetY+canvasH/2-2)
	pdf.CellFormat(ww, 4, widthLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawPiecesLegend lists the distinct pieces of a sheet with their colour swatch.
func drawPiecesLegend(pdf *fpdf.Fpdf, us model.UsedSheet, pal *palette, startY float64) {
	if len(us.Placements) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Pieces:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, row := range groupPlacements(us.Placements) {
		r, g, b := pal.rgb(row.piece.ID)
		label := fmt.Sprintf("%s %s x%d", pieceName(row.piece), row.piece.ExpandedDimensions(), row.count)
		labelW := pdf.GetStringWidth(label) + 6
		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(r, g, b)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")
		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")
		xPos += labelW + 2
	}
}

// renderSummaryPage draws the plan totals, the per-sheet table and the parameters used.
func renderSummaryPage(pdf *fpdf.Fpdf, plan model.CuttingPlan, params model.OptimizationParams) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Cutting Plan Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18
	st := plan.Stats
	y = keyValueBlock(pdf, y, "Overall Statistics", [][2]string{
		{"Sheets Used", fmt.Sprintf("%d (lower bound %d)", st.TotalSheets, st.AreaLowerBoundSheets)},
		{"Global Efficiency", fmt.Sprintf("%.1f%%", st.GlobalEfficiency)},
		{"Pieces Placed", fmt.Sprintf("%d of %d", st.PlacedPieces, st.TotalPieces)},
		{"Total Cuts", fmt.Sprintf("%d", st.TotalCuts)},
		{"Sheet Cost", fmt.Sprintf("%.2f", st.TotalSheetCost)},
		{"Strategy", plan.Strategy},
	})

	y += 5
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{15, 70, 45, 25, 30, 70}
	headers := []string{"Sheet", "Material", "Dimensions", "Pieces", "Efficiency", "Used / Usable Area"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, us := range plan.Sheets {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		row := []string{
			fmt.Sprintf("%d", us.Index+1),
			us.Sheet.Label(),
			fmt.Sprintf("%s mm", us.Sheet.Dimensions),
			fmt.Sprintf("%d", len(us.Placements)),
			fmt.Sprintf("%.1f%%", us.Efficiency),
			fmt.Sprintf("%.0f / %.0f mm²", us.UsedArea, us.UsableArea),
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		xPos = marginLeft
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(plan.UnplacedPieces) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Pieces", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, row := range groupUnits(plan.UnplacedPieces) {
			if y > pageHeight-marginBottom-5 {
				pdf.AddPage()
				y = marginTop
			}
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %s mm (qty: %d)", pieceName(row.piece), row.piece.ExpandedDimensions(), row.count)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	y += 8
	if y > pageHeight-marginBottom-40 {
		pdf.AddPage()
		y = marginTop
	}
	keyValueBlock(pdf, y, "Parameters", [][2]string{
		{"Kerf Width", fmt.Sprintf("%.1f mm", params.KerfWidth)},
		{"Algorithm", string(params.Algorithm)},
		{"Rotation", fmt.Sprintf("%t", params.AllowRotation)},
		{"Min Offcut", fmt.Sprintf("%.0f x %.0f mm", params.MinOffcutLength, params.MinOffcutWidth)},
	})

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by CutPlan", "", 0, "C", false, 0, "")
}

func keyValueBlock(pdf *fpdf.Fpdf, y float64, title string, items [][2]string) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, title, "", 0, "L", false, 0, "")
	y += 9

	for _, item := range items {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(120, 6, item[1], "", 0, "L", false, 0, "")
		y += 7
	}
	return y
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
