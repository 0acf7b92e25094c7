package model

// ValidatePieces rejects degenerate piece input.
func ValidatePieces(pieces []CuttingPiece) error {
	if len(pieces) == 0 {
		return invalidInput("no pieces to cut")
	}
	seen := make(map[string]bool, len(pieces))
	for _, p := range pieces {
		fail := func(format string, args ...any) error {
			e := invalidInput(format, args...)
			e.PieceID = p.ID
			return e
		}
		if p.ID == "" {
			return invalidInput("piece %q has no id", p.Name)
		}
		if seen[p.ID] {
			return fail("duplicate piece id")
		}
		seen[p.ID] = true
		if p.Dimensions.Length <= 0 || p.Dimensions.Width <= 0 {
			return fail("piece dimensions must be positive (got %s)", p.Dimensions)
		}
		if p.Quantity <= 0 {
			return fail("piece quantity must be positive (got %d)", p.Quantity)
		}
		if p.Expansion.Length < 0 || p.Expansion.Width < 0 {
			return fail("piece expansion must not be negative")
		}
		if !p.GrainDirection.Valid() {
			return fail("unknown grain direction %q", p.GrainDirection)
		}
	}
	return nil
}

// ValidateSheets rejects degenerate sheet input. An empty list is valid here;
// the optimizer reports it as unsatisfiable.
func ValidateSheets(sheets []SourceSheet) error {
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		fail := func(format string, args ...any) error {
			e := invalidInput(format, args...)
			e.SheetID = s.ID
			return e
		}
		if s.ID == "" {
			return invalidInput("sheet %q has no id", s.Label())
		}
		if seen[s.ID] {
			return fail("duplicate sheet id")
		}
		seen[s.ID] = true
		if s.Dimensions.Length <= 0 || s.Dimensions.Width <= 0 {
			return fail("sheet dimensions must be positive (got %s)", s.Dimensions)
		}
		if s.AvailableQuantity < 0 {
			return fail("sheet quantity must not be negative")
		}
		t := s.Trim
		if t.Top < 0 || t.Left < 0 || t.Bottom < 0 || t.Right < 0 {
			return fail("sheet trim must not be negative")
		}
		u := s.UsableDimensions()
		if u.Length <= 0 || u.Width <= 0 {
			return fail("trim consumes the whole sheet")
		}
		if s.PricePerSheet < 0 || s.PricePerM2 < 0 || s.Thickness < 0 {
			return fail("sheet price and thickness must not be negative")
		}
		if !s.GrainDirection.Valid() {
			return fail("unknown grain direction %q", s.GrainDirection)
		}
	}
	return nil
}
