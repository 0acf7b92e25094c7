package engine

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// Optimizer spreads piece units over as few source sheets as it can.
type Optimizer struct {
	Params model.OptimizationParams
}

func New(params model.OptimizationParams) *Optimizer {
	return &Optimizer{Params: params}
}

// job is the validated input of one run, shared read-only by concurrent passes.
type job struct {
	units    []model.CuttingPiece // Placeable units in input order
	oversize []model.CuttingPiece // Units no sheet can take in any legal orientation
	sheets   []model.SourceSheet
	bound    int
}

// sheetSlot tracks how many sheets of one type are left during a pass.
type sheetSlot struct {
	sheet     model.SourceSheet
	left      int // -1 is unlimited
	abandoned bool
}

// sheetPacker packs units onto one sheet and names the config that did it.
type sheetPacker func(sheet model.SourceSheet, index int, units []model.CuttingPiece) (SheetPacking, string)

// Optimize runs a single pass with the algorithm selected by the parameters.
func (o *Optimizer) Optimize(pieces []model.CuttingPiece, sheets []model.SourceSheet) (model.CuttingPlan, error) {
	j, err := o.prepare(pieces, sheets)
	if err != nil {
		return model.CuttingPlan{}, err
	}
	cfg := ConfigFromParams(o.Params)
	plan, err := o.run(context.Background(), j, SortPieces(j.units, cfg.SortOrder), o.configPacker(cfg, false))
	if err != nil {
		return model.CuttingPlan{}, err
	}
	plan.Strategy = cfg.Name
	return plan, nil
}

// OptimizeWithIterations repeats the pass under several piece orders in parallel,
// optionally followed by a genetic order search, and keeps the best plan.
func (o *Optimizer) OptimizeWithIterations(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet) (model.CuttingPlan, error) {
	j, err := o.prepare(pieces, sheets)
	if err != nil {
		return model.CuttingPlan{}, err
	}

	base := ConfigFromParams(o.Params)
	orders := iterationOrders(base.SortOrder, max(o.Params.Iterations, 1))
	plans := make([]model.CuttingPlan, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	for i, order := range orders {
		cfg := base.WithSortOrder(order)
		g.Go(func() error {
			plan, err := o.run(gctx, j, SortPieces(j.units, order), o.configPacker(cfg, false))
			if err != nil {
				return err
			}
			plan.Strategy = cfg.Name
			plans[i] = plan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.CuttingPlan{}, err
	}

	if o.Params.GeneticGenerations > 0 {
		gen := DefaultGeneticConfig()
		gen.Generations = o.Params.GeneticGenerations
		plan, err := newGeneticSearch(o, j, base, gen, 42).optimize(ctx)
		if err != nil {
			return model.CuttingPlan{}, err
		}
		plans = append(plans, plan)
	}

	best := 0
	for i := 1; i < len(plans); i++ {
		if betterPlan(plans[i], plans[best]) {
			best = i
		}
	}
	klog.V(2).InfoS("iterations done", "strategies", len(plans), "winner", plans[best].Strategy,
		"sheets", plans[best].Stats.TotalSheets, "efficiency", plans[best].Stats.GlobalEfficiency)
	return plans[best], nil
}

// SmartOptimize lets the Comparator pick the algorithm for every sheet separately.
func (o *Optimizer) SmartOptimize(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet) (model.CuttingPlan, error) {
	j, err := o.prepare(pieces, sheets)
	if err != nil {
		return model.CuttingPlan{}, err
	}
	cmp := NewComparator(o.Params)
	configs := QuickConfigs()
	pack := func(sheet model.SourceSheet, index int, units []model.CuttingPiece) (SheetPacking, string) {
		sp, cfg := cmp.CompareSheet(sheet, index, units, configs)
		return sp, cfg.Name
	}
	plan, err := o.run(ctx, j, SortPieces(j.units, o.Params.SortOrder), pack)
	if err != nil {
		return model.CuttingPlan{}, err
	}
	plan.Strategy = "smart"
	return plan, nil
}

// prepare validates the input, expands quantities and sets aside oversize units.
func (o *Optimizer) prepare(pieces []model.CuttingPiece, sheets []model.SourceSheet) (*job, error) {
	if err := o.Params.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidatePieces(pieces); err != nil {
		return nil, err
	}
	if err := model.ValidateSheets(sheets); err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, model.NewError(model.ErrUnsatisfiable, "no sheets supplied")
	}

	j := &job{sheets: sheets}
	for _, u := range ExpandQuantities(pieces) {
		if FitsAnySheet(u, sheets, o.Params) {
			j.units = append(j.units, u)
			continue
		}
		if o.Params.StrictFit {
			e := model.NewError(model.ErrUnsatisfiable, "piece %q (%s) fits no sheet in any legal orientation",
				u.Name, u.ExpandedDimensions())
			e.PieceID = u.ID
			return nil, e
		}
		j.oversize = append(j.oversize, u)
	}
	j.bound = model.AreaLowerBound(j.units, sheets)
	return j, nil
}

// run is one multi-sheet pass over the units in the given order.
func (o *Optimizer) run(ctx context.Context, j *job, units []model.CuttingPiece, pack sheetPacker) (model.CuttingPlan, error) {
	slots := make([]sheetSlot, len(j.sheets))
	for i, s := range j.sheets {
		left := s.AvailableQuantity
		if left == 0 {
			left = -1
		}
		slots[i] = sheetSlot{sheet: s, left: left}
	}

	var plan model.CuttingPlan
	remaining := units
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return model.CuttingPlan{}, err
		}
		idx, sp, name := o.selectSheet(slots, remaining, len(plan.Sheets), pack)
		if idx < 0 {
			break
		}
		slot := &slots[idx]
		if len(sp.Placements) == 0 {
			// Nothing fits: drop this sheet type so the loop always makes progress.
			slot.abandoned = true
			klog.V(2).InfoS("sheet abandoned", "sheet", slot.sheet.ID)
			continue
		}
		if slot.left > 0 {
			slot.left--
		}
		plan.Sheets = append(plan.Sheets, o.record(len(plan.Sheets), slot.sheet, sp, name))
		remaining = sp.Unplaced
	}

	plan.UnplacedPieces = make([]model.CuttingPiece, 0, len(remaining)+len(j.oversize))
	plan.UnplacedPieces = append(plan.UnplacedPieces, remaining...)
	plan.UnplacedPieces = append(plan.UnplacedPieces, j.oversize...)
	plan.Stats.AreaLowerBoundSheets = j.bound
	plan.ComputeStats()
	return plan, nil
}

// selectSheet finds the best sheet for the remaining units. Offcuts come first
// when preferred; otherwise fresh sheets able to hold the largest remaining unit
// are trial-packed and the most efficient one wins, ties going to the smaller
// sheet and then to input order. The winning trial packing is returned as is.
func (o *Optimizer) selectSheet(slots []sheetSlot, units []model.CuttingPiece, index int, pack sheetPacker) (int, SheetPacking, string) {
	var offcuts, fresh []int
	for i, s := range slots {
		if s.left == 0 || s.abandoned || !o.fitsSome(units, s.sheet) {
			continue
		}
		if s.sheet.IsOffcut && o.Params.PreferOffcuts {
			offcuts = append(offcuts, i)
		} else {
			fresh = append(fresh, i)
		}
	}

	group := offcuts
	if len(group) == 0 {
		group = o.holdingLargest(slots, fresh, units)
	}
	if len(group) == 0 {
		return -1, SheetPacking{}, ""
	}

	bestIdx := -1
	var bestPack SheetPacking
	var bestName string
	var bestEff, bestArea float64
	for _, i := range group {
		s := slots[i].sheet
		sp, name := pack(s, index, units)
		area := s.UsableDimensions().Area()
		eff := sp.PlacedArea() / area
		if bestIdx >= 0 {
			if eff < bestEff-1e-9 {
				continue
			}
			if math.Abs(eff-bestEff) <= 1e-9 && area >= bestArea-eps {
				continue
			}
		}
		bestIdx, bestPack, bestName, bestEff, bestArea = i, sp, name, eff, area
	}
	klog.V(2).InfoS("sheet selected", "index", index, "sheet", slots[bestIdx].sheet.ID,
		"offcut", slots[bestIdx].sheet.IsOffcut, "candidates", len(group), "efficiency", bestEff)
	return bestIdx, bestPack, bestName
}

// holdingLargest narrows the candidates to sheets that can take the largest
// remaining unit, falling back to all candidates when none can.
func (o *Optimizer) holdingLargest(slots []sheetSlot, candidates []int, units []model.CuttingPiece) []int {
	if len(candidates) == 0 {
		return nil
	}
	largest := units[0]
	for _, u := range units[1:] {
		if u.ExpandedDimensions().Area() > largest.ExpandedDimensions().Area() {
			largest = u
		}
	}
	var out []int
	for _, i := range candidates {
		if FitsSheet(largest, slots[i].sheet, o.Params) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

func (o *Optimizer) fitsSome(units []model.CuttingPiece, s model.SourceSheet) bool {
	for _, u := range units {
		if FitsSheet(u, s, o.Params) {
			return true
		}
	}
	return false
}

// record turns a packing into a used sheet carrying recomputed free-space geometry.
func (o *Optimizer) record(index int, sheet model.SourceSheet, sp SheetPacking, algo string) model.UsedSheet {
	for i := range sp.Placements {
		sp.Placements[i].SheetIndex = index
	}
	computed := ComputeFreeSpaces(index, sheet.UsableDimensions(), sp.Placements, o.Params.KerfWidth)
	reconcileFreeSpaces(index, sp, computed, o.Params.KerfWidth)

	us := model.UsedSheet{
		Index:      index,
		Sheet:      sheet,
		Algorithm:  algo,
		Placements: sp.Placements,
		FreeSpaces: computed,
		Cuts:       sp.Cuts,
	}
	us.Refresh()
	klog.V(2).InfoS("sheet packed", "index", index, "sheet", sheet.ID, "algorithm", algo,
		"placed", len(us.Placements), "efficiency", us.Efficiency)
	return us
}

func (o *Optimizer) configPacker(cfg StrategyConfig, keepOrder bool) sheetPacker {
	strategy := cfg.Strategy()
	return func(sheet model.SourceSheet, index int, units []model.CuttingPiece) (SheetPacking, string) {
		if !keepOrder {
			units = SortPieces(units, cfg.SortOrder)
		}
		return strategy.Pack(sheet, index, units, o.Params), cfg.Name
	}
}

func (o *Optimizer) workers() int {
	if o.Params.Workers > 0 {
		return o.Params.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// betterPlan ranks plans: more placed pieces, then fewer sheets, then higher
// efficiency, then lower sheet cost. Equal plans are not better.
func betterPlan(a, b model.CuttingPlan) bool {
	if a.Stats.PlacedPieces != b.Stats.PlacedPieces {
		return a.Stats.PlacedPieces > b.Stats.PlacedPieces
	}
	if a.Stats.TotalSheets != b.Stats.TotalSheets {
		return a.Stats.TotalSheets < b.Stats.TotalSheets
	}
	if d := a.Stats.GlobalEfficiency - b.Stats.GlobalEfficiency; math.Abs(d) > 1e-9 {
		return d > 0
	}
	if d := a.Stats.TotalSheetCost - b.Stats.TotalSheetCost; math.Abs(d) > 1e-9 {
		return d < 0
	}
	return false
}
