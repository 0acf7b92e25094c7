package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// ConfigResult holds the plan one configuration produced and its headline figures.
type ConfigResult struct {
	Config     StrategyConfig    `json:"config"`
	Plan       model.CuttingPlan `json:"-"`
	Placed     int               `json:"placed"`
	Unplaced   int               `json:"unplaced"`
	Sheets     int               `json:"sheets"`
	Efficiency float64           `json:"efficiency"`
	Cost       float64           `json:"cost"`
	Cuts       int               `json:"cuts"`
	Duration   time.Duration     `json:"durationNs"`
	Rank       int               `json:"rank"` // 1 is best
}

func newConfigResult(cfg StrategyConfig, plan model.CuttingPlan, d time.Duration) ConfigResult {
	return ConfigResult{
		Config:     cfg,
		Plan:       plan,
		Placed:     plan.Stats.PlacedPieces,
		Unplaced:   len(plan.UnplacedPieces),
		Sheets:     plan.Stats.TotalSheets,
		Efficiency: plan.Stats.GlobalEfficiency,
		Cost:       plan.Stats.TotalSheetCost,
		Cuts:       plan.Stats.TotalCuts,
		Duration:   d,
	}
}

// Comparator runs the same input through several configurations and picks the best.
type Comparator struct {
	Params model.OptimizationParams
}

func NewComparator(params model.OptimizationParams) *Comparator {
	return &Comparator{Params: params}
}

// ComparePlans runs a full multi-sheet pass per configuration in parallel and
// returns the results in config order together with the index of the winner.
// Ranking: more placed pieces, fewer sheets, higher efficiency, lower cost, then config order.
func (c *Comparator) ComparePlans(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet, configs []StrategyConfig) ([]ConfigResult, int, error) {
	if len(configs) == 0 {
		return nil, -1, model.NewError(model.ErrInvalidInput, "no configurations to compare")
	}
	opt := New(c.Params)
	j, err := opt.prepare(pieces, sheets)
	if err != nil {
		return nil, -1, err
	}

	results := make([]ConfigResult, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.workers())
	for i, cfg := range configs {
		g.Go(func() error {
			start := time.Now()
			plan, err := opt.run(gctx, j, SortPieces(j.units, cfg.SortOrder), opt.configPacker(cfg, false))
			if err != nil {
				return err
			}
			plan.Strategy = cfg.Name
			results[i] = newConfigResult(cfg, plan, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, -1, err
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if betterPlan(results[i].Plan, results[best].Plan) {
			best = i
		}
	}
	klog.V(2).InfoS("comparison done", "configs", len(configs), "winner", results[best].Config.Name)
	return results, best, nil
}

// CompareSheet packs one sheet under every configuration and returns the packing
// with the most placed pieces, then the highest placed area, then the earliest config.
func (c *Comparator) CompareSheet(sheet model.SourceSheet, index int, units []model.CuttingPiece, configs []StrategyConfig) (SheetPacking, StrategyConfig) {
	packings := make([]SheetPacking, len(configs))
	var g errgroup.Group
	g.SetLimit(New(c.Params).workers())
	for i, cfg := range configs {
		g.Go(func() error {
			packings[i] = cfg.Strategy().Pack(sheet, index, SortPieces(units, cfg.SortOrder), c.Params)
			return nil
		})
	}
	_ = g.Wait()

	best := 0
	for i := 1; i < len(packings); i++ {
		a, b := packings[i], packings[best]
		if len(a.Placements) != len(b.Placements) {
			if len(a.Placements) > len(b.Placements) {
				best = i
			}
			continue
		}
		if a.PlacedArea()-b.PlacedArea() > 1e-9*math.Max(1, b.PlacedArea()) {
			best = i
		}
	}
	return packings[best], configs[best]
}

// QuickOptimize returns the best plan of the curated quick configurations.
func (c *Comparator) QuickOptimize(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet) (model.CuttingPlan, error) {
	return c.bestOf(ctx, pieces, sheets, QuickConfigs())
}

// FullOptimize returns the best plan of the complete configuration matrix.
func (c *Comparator) FullOptimize(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet) (model.CuttingPlan, error) {
	return c.bestOf(ctx, pieces, sheets, FullConfigs())
}

func (c *Comparator) bestOf(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet, configs []StrategyConfig) (model.CuttingPlan, error) {
	results, best, err := c.ComparePlans(ctx, pieces, sheets, configs)
	if err != nil {
		return model.CuttingPlan{}, err
	}
	return results[best].Plan, nil
}

// RunBenchmark runs every configuration and returns the results ranked best first,
// each with its wall time.
func (c *Comparator) RunBenchmark(ctx context.Context, pieces []model.CuttingPiece, sheets []model.SourceSheet, configs []StrategyConfig) ([]ConfigResult, error) {
	results, _, err := c.ComparePlans(ctx, pieces, sheets, configs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return betterPlan(results[i].Plan, results[j].Plan)
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}
