package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/piwi3910/cutplan/internal/model"
)

// edgeBandingWaste is the waste allowance added to banding totals, in percent.
const edgeBandingWaste = 10.0

// WriteReport writes a plain-text cutting report: totals, per-sheet cut lists,
// reusable offcuts, unplaced pieces and edge-banding needs.
func WriteReport(w io.Writer, plan model.CuttingPlan, offcuts []model.ReusableOffcut) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	st := plan.Stats

	fmt.Fprintf(tw, "CUTTING PLAN\n")
	if plan.Strategy != "" {
		fmt.Fprintf(tw, "Strategy:\t%s\n", plan.Strategy)
	}
	fmt.Fprintf(tw, "Pieces placed:\t%d of %d\n", st.PlacedPieces, st.TotalPieces)
	fmt.Fprintf(tw, "Sheets used:\t%d (area lower bound %d)\n", st.TotalSheets, st.AreaLowerBoundSheets)
	fmt.Fprintf(tw, "Efficiency:\t%.1f%%\n", st.GlobalEfficiency)
	fmt.Fprintf(tw, "Waste area:\t%.2f m2\n", st.TotalWasteArea/1e6)
	fmt.Fprintf(tw, "Cuts:\t%d\n", st.TotalCuts)
	if st.TotalSheetCost > 0 {
		fmt.Fprintf(tw, "Material cost:\t%.2f\n", st.TotalSheetCost)
	}

	for _, us := range plan.Sheets {
		fmt.Fprintf(tw, "\nSHEET %d  %s  %.1f%%\n", us.Index+1, us.Sheet.Label(), us.Efficiency)
		fmt.Fprintf(tw, "  piece\tsize\tx\ty\trotated\n")
		for _, p := range us.Placements {
			fmt.Fprintf(tw, "  %s\t%s\t%.1f\t%.1f\t%s\n",
				pieceName(p.Piece), p.FinalDimensions, p.Position.X, p.Position.Y, yesNo(p.Rotated))
		}
		if len(us.FreeSpaces) > 0 {
			parts := make([]string, 0, len(us.FreeSpaces))
			for _, f := range us.FreeSpaces {
				parts = append(parts, f.Dimensions.String())
			}
			fmt.Fprintf(tw, "  free:\t%s\n", strings.Join(parts, ", "))
		}
	}

	if len(offcuts) > 0 {
		fmt.Fprintf(tw, "\nREUSABLE OFFCUTS\n")
		for _, o := range offcuts {
			fmt.Fprintf(tw, "  %s\t%s\tsheet %d\t%.2f\n", o.ID, o.Dimensions, o.ParentSheetIndex+1, o.Price)
		}
	}

	if len(plan.UnplacedPieces) > 0 {
		fmt.Fprintf(tw, "\nUNPLACED\n")
		for _, row := range groupUnits(plan.UnplacedPieces) {
			fmt.Fprintf(tw, "  %s\t%s\tx%d\n", pieceName(row.piece), row.piece.ExpandedDimensions(), row.count)
		}
	}

	if eb := placedEdgeBanding(plan); eb.PieceCount > 0 {
		fmt.Fprintf(tw, "\nEDGE BANDING\n")
		fmt.Fprintf(tw, "  pieces:\t%d (%d edges)\n", eb.PieceCount, eb.EdgeCount)
		fmt.Fprintf(tw, "  length:\t%.2f m, %.2f m with %.0f%% waste\n", eb.TotalLinearM, eb.TotalWithWasteM, eb.WastePercent)
	}

	return tw.Flush()
}

// placedEdgeBanding totals the banding of every placed unit.
func placedEdgeBanding(plan model.CuttingPlan) model.EdgeBandingSummary {
	var units []model.CuttingPiece
	for _, us := range plan.Sheets {
		for _, p := range us.Placements {
			u := p.Piece
			u.Quantity = 1
			units = append(units, u)
		}
	}
	return model.CalculateEdgeBanding(units, edgeBandingWaste)
}
