package engine

import (
	"context"
	"math/rand"
	"sort"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// GeneticConfig holds parameters for the genetic piece-order search.
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
	EliteCount     int
}

// DefaultGeneticConfig returns sensible default parameters.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 24,
		Generations:    20,
		MutationRate:   0.15,
		TournamentSize: 3,
		EliteCount:     2,
	}
}

// chromosome is a candidate unit order.
type chromosome struct {
	order   []int // Indexes into the job units
	fitness float64
	plan    model.CuttingPlan
}

// geneticSearch evolves the order in which units are fed to a fixed packer config.
type geneticSearch struct {
	opt    *Optimizer
	job    *job
	cfg    StrategyConfig
	config GeneticConfig
	rng    *rand.Rand
}

func newGeneticSearch(opt *Optimizer, j *job, cfg StrategyConfig, config GeneticConfig, seed int64) *geneticSearch {
	return &geneticSearch{
		opt:    opt,
		job:    j,
		cfg:    cfg,
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// optimize runs the search and returns the best plan seen.
func (g *geneticSearch) optimize(ctx context.Context) (model.CuttingPlan, error) {
	population, err := g.initPopulation(ctx)
	if err != nil {
		return model.CuttingPlan{}, err
	}
	if len(population) == 0 {
		return g.decode(ctx, nil)
	}

	for gen := 0; gen < g.config.Generations; gen++ {
		sortByFitness(population)

		next := make([]chromosome, 0, g.config.PopulationSize)
		for i := 0; i < g.config.EliteCount && i < len(population); i++ {
			next = append(next, population[i])
		}
		for len(next) < g.config.PopulationSize {
			child := g.orderCrossover(g.tournamentSelect(population), g.tournamentSelect(population))
			g.mutate(&child)
			if err := g.evaluate(ctx, &child); err != nil {
				return model.CuttingPlan{}, err
			}
			next = append(next, child)
		}
		population = next
	}

	sortByFitness(population)
	best := population[0].plan
	best.Strategy = "genetic:" + g.cfg.Name
	klog.V(2).InfoS("genetic search done", "generations", g.config.Generations,
		"fitness", population[0].fitness, "sheets", best.Stats.TotalSheets)
	return best, nil
}

// initPopulation seeds one chromosome with the configured sort order and fills
// the rest with random permutations.
func (g *geneticSearch) initPopulation(ctx context.Context) ([]chromosome, error) {
	n := len(g.job.units)
	if n == 0 || g.config.PopulationSize <= 0 {
		return nil, nil
	}

	population := make([]chromosome, g.config.PopulationSize)
	population[0] = chromosome{order: g.greedyOrder()}
	for i := 1; i < len(population); i++ {
		population[i] = chromosome{order: g.rng.Perm(n)}
	}
	for i := range population {
		if err := g.evaluate(ctx, &population[i]); err != nil {
			return nil, err
		}
	}
	return population, nil
}

func (g *geneticSearch) greedyOrder() []int {
	n := len(g.job.units)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	less := sortFunc(g.cfg.SortOrder)
	sort.SliceStable(order, func(a, b int) bool {
		return less(g.job.units[order[a]], g.job.units[order[b]])
	})
	return order
}

// evaluate decodes the chromosome and scores it by efficiency, with heavy
// penalties for unplaced units and extra sheets.
func (g *geneticSearch) evaluate(ctx context.Context, c *chromosome) error {
	plan, err := g.decode(ctx, c.order)
	if err != nil {
		return err
	}
	c.plan = plan

	unplaced := len(plan.UnplacedPieces) - len(g.job.oversize)
	fitness := plan.Stats.GlobalEfficiency/100.0 - float64(unplaced)*0.1
	if plan.Stats.TotalSheets > 1 {
		fitness -= float64(plan.Stats.TotalSheets-1) * 0.05
	}
	c.fitness = fitness
	return nil
}

// decode runs a multi-sheet pass over the units in chromosome order.
func (g *geneticSearch) decode(ctx context.Context, order []int) (model.CuttingPlan, error) {
	units := make([]model.CuttingPiece, len(order))
	for i, idx := range order {
		units[i] = g.job.units[idx]
	}
	return g.opt.run(ctx, g.job, units, g.opt.configPacker(g.cfg, true))
}

// tournamentSelect picks the best individual from a random tournament.
func (g *geneticSearch) tournamentSelect(population []chromosome) chromosome {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.config.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return best
}

// orderCrossover implements Order Crossover (OX1) for permutation chromosomes.
// It preserves the relative order of genes from both parents.
func (g *geneticSearch) orderCrossover(parent1, parent2 chromosome) chromosome {
	n := len(parent1.order)
	child := chromosome{order: make([]int, n)}
	if n <= 2 {
		copy(child.order, parent1.order)
		return child
	}

	point1 := g.rng.Intn(n)
	point2 := g.rng.Intn(n)
	if point1 > point2 {
		point1, point2 = point2, point1
	}

	inSegment := make(map[int]bool, point2-point1+1)
	for i := point1; i <= point2; i++ {
		child.order[i] = parent1.order[i]
		inSegment[parent1.order[i]] = true
	}

	childIdx := (point2 + 1) % n
	for _, idx := range parent2.order {
		if !inSegment[idx] {
			child.order[childIdx] = idx
			childIdx = (childIdx + 1) % n
		}
	}
	return child
}

// mutate applies a swap and, less often, a segment inversion.
func (g *geneticSearch) mutate(c *chromosome) {
	n := len(c.order)
	if n < 2 {
		return
	}

	if g.rng.Float64() < g.config.MutationRate {
		i, j := g.rng.Intn(n), g.rng.Intn(n)
		c.order[i], c.order[j] = c.order[j], c.order[i]
	}

	if g.rng.Float64() < g.config.MutationRate*0.5 {
		i, j := g.rng.Intn(n), g.rng.Intn(n)
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.order[i], c.order[j] = c.order[j], c.order[i]
			i++
			j--
		}
	}
}

func sortByFitness(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}
