package model

// Algorithm selects the packing algorithm used for a sheet.
type Algorithm string

const (
	AlgorithmGuillotine Algorithm = "guillotine" // Edge-to-edge cuts, machine-realistic (default)
	AlgorithmShelf      Algorithm = "shelf"      // First-fit decreasing height rows (fast baseline)
	AlgorithmMaxRects   Algorithm = "maxrects"   // Maximal rectangles (densest, not guillotine)
)

// GuillotineFit is the free-rectangle choice rule of the guillotine packer.
type GuillotineFit string

const (
	FitBestArea      GuillotineFit = "best-area"
	FitBestShortSide GuillotineFit = "best-short-side"
	FitBestLongSide  GuillotineFit = "best-long-side"
	FitFirst         GuillotineFit = "first-fit"
)

// SplitRule decides how the L-shaped leftover of a guillotine placement is split.
type SplitRule string

const (
	SplitShorterLeftoverAxis SplitRule = "shorter-leftover-axis"
	SplitLongerLeftoverAxis  SplitRule = "longer-leftover-axis"
	SplitMinimizeArea        SplitRule = "min-area"
	SplitMaximizeArea        SplitRule = "max-area"
	SplitShorterAxis         SplitRule = "shorter-axis"
	SplitLongerAxis          SplitRule = "longer-axis"
)

// MaxRectsHeuristic is the placement scoring rule of the MaxRects packer.
type MaxRectsHeuristic string

const (
	MaxRectsBestShortSide MaxRectsHeuristic = "best-short-side"
	MaxRectsBestLongSide  MaxRectsHeuristic = "best-long-side"
	MaxRectsBestArea      MaxRectsHeuristic = "best-area"
	MaxRectsBottomLeft    MaxRectsHeuristic = "bottom-left"
	MaxRectsContactPoint  MaxRectsHeuristic = "contact-point"
)

// SortOrder is the order in which expanded piece units are fed to a packer.
type SortOrder string

const (
	SortAreaDesc      SortOrder = "area-desc" // Area, ties by longer side (default)
	SortLongSideDesc  SortOrder = "long-side-desc"
	SortPerimeterDesc SortOrder = "perimeter-desc"
	SortWidthDesc     SortOrder = "width-desc"
	SortLengthDesc    SortOrder = "length-desc"
	SortPriority      SortOrder = "priority" // Priority, then group, then area
)

// OptimizationParams holds the tunables of one optimization run.
type OptimizationParams struct {
	KerfWidth          float64           `json:"kerfWidth" toml:"kerf_width"`
	MinOffcutLength    float64           `json:"minOffcutLength" toml:"min_offcut_length"`
	MinOffcutWidth     float64           `json:"minOffcutWidth" toml:"min_offcut_width"`
	AllowRotation      bool              `json:"allowRotation" toml:"allow_rotation"`
	Algorithm          Algorithm         `json:"algorithm" toml:"algorithm"`
	GuillotineFit      GuillotineFit     `json:"guillotineFit" toml:"guillotine_fit"`
	GuillotineSplit    SplitRule         `json:"guillotineSplit" toml:"guillotine_split"`
	MaxRectsHeuristic  MaxRectsHeuristic `json:"maxRectsHeuristic" toml:"maxrects_heuristic"`
	SortOrder          SortOrder         `json:"sortOrder" toml:"sort_order"`
	Iterations         int               `json:"iterations" toml:"iterations"`
	GeneticGenerations int               `json:"geneticGenerations" toml:"genetic_generations"`
	PreferOffcuts      bool              `json:"preferOffcuts" toml:"prefer_offcuts"`
	StrictFit          bool              `json:"strictFit" toml:"strict_fit"` // Oversize pieces fail the request
	Workers            int               `json:"workers" toml:"workers"`
}

// DefaultParams returns the process-wide default parameters.
func DefaultParams() OptimizationParams {
	return OptimizationParams{
		KerfWidth:          4.0,
		MinOffcutLength:    300.0,
		MinOffcutWidth:     100.0,
		AllowRotation:      true,
		Algorithm:          AlgorithmGuillotine,
		GuillotineFit:      FitBestArea,
		GuillotineSplit:    SplitShorterLeftoverAxis,
		MaxRectsHeuristic:  MaxRectsBestShortSide,
		SortOrder:          SortAreaDesc,
		Iterations:         6,
		GeneticGenerations: 0,
		PreferOffcuts:      true,
		StrictFit:          false,
		Workers:            4,
	}
}

// ParamsPatch overrides a subset of OptimizationParams. Nil fields keep the base value.
type ParamsPatch struct {
	KerfWidth          *float64           `json:"kerfWidth,omitempty"`
	MinOffcutLength    *float64           `json:"minOffcutLength,omitempty"`
	MinOffcutWidth     *float64           `json:"minOffcutWidth,omitempty"`
	AllowRotation      *bool              `json:"allowRotation,omitempty"`
	Algorithm          *Algorithm         `json:"algorithm,omitempty"`
	GuillotineFit      *GuillotineFit     `json:"guillotineFit,omitempty"`
	GuillotineSplit    *SplitRule         `json:"guillotineSplit,omitempty"`
	MaxRectsHeuristic  *MaxRectsHeuristic `json:"maxRectsHeuristic,omitempty"`
	SortOrder          *SortOrder         `json:"sortOrder,omitempty"`
	Iterations         *int               `json:"iterations,omitempty"`
	GeneticGenerations *int               `json:"geneticGenerations,omitempty"`
	PreferOffcuts      *bool              `json:"preferOffcuts,omitempty"`
	StrictFit          *bool              `json:"strictFit,omitempty"`
	Workers            *int               `json:"workers,omitempty"`
}

// Apply returns base with every non-nil field of the patch applied.
func (pp *ParamsPatch) Apply(base OptimizationParams) OptimizationParams {
	if pp == nil {
		return base
	}
	out := base
	if pp.KerfWidth != nil {
		out.KerfWidth = *pp.KerfWidth
	}
	if pp.MinOffcutLength != nil {
		out.MinOffcutLength = *pp.MinOffcutLength
	}
	if pp.MinOffcutWidth != nil {
		out.MinOffcutWidth = *pp.MinOffcutWidth
	}
	if pp.AllowRotation != nil {
		out.AllowRotation = *pp.AllowRotation
	}
	if pp.Algorithm != nil {
		out.Algorithm = *pp.Algorithm
	}
	if pp.GuillotineFit != nil {
		out.GuillotineFit = *pp.GuillotineFit
	}
	if pp.GuillotineSplit != nil {
		out.GuillotineSplit = *pp.GuillotineSplit
	}
	if pp.MaxRectsHeuristic != nil {
		out.MaxRectsHeuristic = *pp.MaxRectsHeuristic
	}
	if pp.SortOrder != nil {
		out.SortOrder = *pp.SortOrder
	}
	if pp.Iterations != nil {
		out.Iterations = *pp.Iterations
	}
	if pp.GeneticGenerations != nil {
		out.GeneticGenerations = *pp.GeneticGenerations
	}
	if pp.PreferOffcuts != nil {
		out.PreferOffcuts = *pp.PreferOffcuts
	}
	if pp.StrictFit != nil {
		out.StrictFit = *pp.StrictFit
	}
	if pp.Workers != nil {
		out.Workers = *pp.Workers
	}
	return out
}

// Validate checks the parameter ranges and enum values.
func (p OptimizationParams) Validate() error {
	if p.KerfWidth < 0 {
		return invalidInput("kerf width must not be negative (got %.2f)", p.KerfWidth)
	}
	if p.MinOffcutLength < 0 || p.MinOffcutWidth < 0 {
		return invalidInput("minimum offcut size must not be negative")
	}
	if p.Iterations < 0 || p.GeneticGenerations < 0 || p.Workers < 0 {
		return invalidInput("iteration, generation and worker counts must not be negative")
	}
	switch p.Algorithm {
	case AlgorithmGuillotine, AlgorithmShelf, AlgorithmMaxRects:
	default:
		return invalidInput("unknown algorithm %q", p.Algorithm)
	}
	switch p.GuillotineFit {
	case FitBestArea, FitBestShortSide, FitBestLongSide, FitFirst:
	default:
		return invalidInput("unknown guillotine fit rule %q", p.GuillotineFit)
	}
	switch p.GuillotineSplit {
	case SplitShorterLeftoverAxis, SplitLongerLeftoverAxis, SplitMinimizeArea,
		SplitMaximizeArea, SplitShorterAxis, SplitLongerAxis:
	default:
		return invalidInput("unknown guillotine split rule %q", p.GuillotineSplit)
	}
	switch p.MaxRectsHeuristic {
	case MaxRectsBestShortSide, MaxRectsBestLongSide, MaxRectsBestArea,
		MaxRectsBottomLeft, MaxRectsContactPoint:
	default:
		return invalidInput("unknown maxrects heuristic %q", p.MaxRectsHeuristic)
	}
	switch p.SortOrder {
	case SortAreaDesc, SortLongSideDesc, SortPerimeterDesc, SortWidthDesc, SortLengthDesc, SortPriority:
	default:
		return invalidInput("unknown sort order %q", p.SortOrder)
	}
	return nil
}
