package engine

import "github.com/piwi3910/cutplan/internal/model"

// Orientation is one legal way to lay a piece on a sheet.
type Orientation struct {
	Rotated    bool
	Dimensions model.Dimensions // Expanded, post-rotation
}

// LegalOrientations returns the orientations in which the piece may be cut from
// the sheet, unrotated first. The result is empty when the grain cannot be honoured.
//
// Grain only binds when both the piece and the sheet have one. In that case the
// piece keeps its grain parallel to the sheet's: same axis means unrotated only,
// opposite axes means rotated only (and only if rotation is allowed at all).
func LegalOrientations(p model.CuttingPiece, s model.SourceSheet, params model.OptimizationParams) []Orientation {
	d := p.ExpandedDimensions()
	canRotate := p.CanRotate && params.AllowRotation
	square := d.Length == d.Width

	pg, sg := p.Grain(), s.Grain()
	if pg == "" || sg == "" {
		out := []Orientation{{Rotated: false, Dimensions: d}}
		if canRotate && !square {
			out = append(out, Orientation{Rotated: true, Dimensions: d.Rotated()})
		}
		return out
	}

	if pg == sg {
		return []Orientation{{Rotated: false, Dimensions: d}}
	}
	if canRotate {
		return []Orientation{{Rotated: true, Dimensions: d.Rotated()}}
	}
	return nil
}

// orientationsFor adds material compatibility to LegalOrientations.
func orientationsFor(p model.CuttingPiece, s model.SourceSheet, params model.OptimizationParams) []Orientation {
	if !s.Accepts(p) {
		return nil
	}
	return LegalOrientations(p, s, params)
}

// IsLegal reports whether a placement with the given rotation honours the grain law.
func IsLegal(p model.CuttingPiece, s model.SourceSheet, params model.OptimizationParams, rotated bool) bool {
	for _, o := range LegalOrientations(p, s, params) {
		if o.Rotated == rotated {
			return true
		}
	}
	// A square piece reports one orientation but may sit either way when rotation is free.
	d := p.ExpandedDimensions()
	free := p.Grain() == "" || s.Grain() == ""
	return rotated && free && d.Length == d.Width && p.CanRotate && params.AllowRotation
}

// FitsSheet reports whether the piece fits the empty sheet in some legal orientation, kerf included.
func FitsSheet(p model.CuttingPiece, s model.SourceSheet, params model.OptimizationParams) bool {
	u := s.UsableDimensions()
	usable := rect{w: u.Length, h: u.Width}
	for _, o := range orientationsFor(p, s, params) {
		if usable.fits(o.Dimensions.Length+params.KerfWidth, o.Dimensions.Width+params.KerfWidth) {
			return true
		}
	}
	return false
}

// FitsAnySheet reports whether at least one sheet can take the piece.
func FitsAnySheet(p model.CuttingPiece, sheets []model.SourceSheet, params model.OptimizationParams) bool {
	for _, s := range sheets {
		if FitsSheet(p, s, params) {
			return true
		}
	}
	return false
}
