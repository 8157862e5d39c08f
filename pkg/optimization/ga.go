package optimization

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// GA defaults, tuned for small populations over short windows
const (
	GAPopulationSize = 24
	GAGenerations    = 15
	GAMutationRate   = 0.2
	GACrossoverRate  = 0.85
	GAEliteSize      = 4
	TournamentSize   = 2
	// GAMutationScale is the mutation step as a fraction of a parameter's width.
	GAMutationScale = 0.1
)

// GAConfig holds the configuration for the genetic algorithm
type GAConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	CrossoverRate  float64
	EliteSize      int
	TournamentSize int
}

// DefaultGAConfig returns the default genetic algorithm configuration
func DefaultGAConfig() GAConfig {
	return GAConfig{
		PopulationSize: GAPopulationSize,
		Generations:    GAGenerations,
		MutationRate:   GAMutationRate,
		CrossoverRate:  GACrossoverRate,
		EliteSize:      GAEliteSize,
		TournamentSize: TournamentSize,
	}
}

// GAIndividual represents a candidate solution
type GAIndividual struct {
	Point     Point
	Fitness   float64
	Evaluated bool
}

// GeneticSearcher is a population-based global search.
type GeneticSearcher struct {
	opts Options
	cfg  GAConfig
}

// NewGeneticSearcher creates a genetic searcher. Zero config fields take defaults.
func NewGeneticSearcher(opts Options, cfg GAConfig) *GeneticSearcher {
	def := DefaultGAConfig()
	if cfg.PopulationSize <= 1 {
		cfg.PopulationSize = def.PopulationSize
	}
	if cfg.Generations <= 0 {
		cfg.Generations = def.Generations
	}
	if cfg.MutationRate <= 0 {
		cfg.MutationRate = def.MutationRate
	}
	if cfg.CrossoverRate <= 0 {
		cfg.CrossoverRate = def.CrossoverRate
	}
	if cfg.EliteSize < 0 || cfg.EliteSize >= cfg.PopulationSize {
		cfg.EliteSize = min(def.EliteSize, cfg.PopulationSize-1)
	}
	if cfg.TournamentSize <= 0 {
		cfg.TournamentSize = def.TournamentSize
	}
	return &GeneticSearcher{opts: opts.withDefaults(), cfg: cfg}
}

func (g *GeneticSearcher) Name() string { return "genetic" }

// Search evolves a population for the configured number of generations, or
// until the trial or time budget runs out.
func (g *GeneticSearcher) Search(ctx context.Context, space *Space, objective Objective) (*Result, error) {
	if err := checkSearchInputs(space, objective); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, g.opts.Timeout)
	defer cancel()

	ev := newEvaluator(g.Name(), space, objective, g.opts)
	rng := rand.New(rand.NewSource(g.opts.Seed))

	pool := ev.newPool(ctx, g.cfg.PopulationSize)
	pool.Start()
	defer pool.Stop()

	ev.logger.Info("starting search",
		zap.String("space", space.String()),
		zap.Int("budget", g.opts.MaxTrials),
		zap.Int("population", g.cfg.PopulationSize),
		zap.Int("generations", g.cfg.Generations))

	population := InitializePopulation(space, g.cfg.PopulationSize, rng)

	for gen := 0; gen < g.cfg.Generations; gen++ {
		if ctx.Err() != nil || ev.exhausted() {
			break
		}
		g.evaluatePopulation(ctx, ev, pool, population)
		SortPopulationByFitness(population)

		ev.logger.Debug("generation complete",
			zap.Int("generation", gen+1),
			zap.Float64("best", population[0].Fitness),
			zap.Float64("average", AverageFitness(population)))

		if gen < g.cfg.Generations-1 {
			population = CreateNextGeneration(space, population, g.cfg, rng)
		}
	}

	result := ev.result(ev.stopReason(ctx, "generations completed"))
	ev.logger.Info("search finished", zap.String("summary", result.Summary()), zap.String("stop", result.StopReason))
	return result, nil
}

// evaluatePopulation runs every individual that has no fitness yet. Individuals
// left unevaluated when the budget runs out get -Inf.
func (g *GeneticSearcher) evaluatePopulation(ctx context.Context, ev *evaluator, pool *WorkerPool, population []*GAIndividual) {
	pending := make([]*GAIndividual, 0, len(population))
	points := make([]Point, 0, len(population))
	for _, ind := range population {
		if !ind.Evaluated {
			pending = append(pending, ind)
			points = append(points, ind.Point)
		}
	}

	trials := ev.runBatch(ctx, pool, points)
	for i, ind := range pending {
		ind.Evaluated = true
		if t := trials[i]; t != nil {
			ind.Point = t.Point
			ind.Fitness = t.Value
		} else {
			ind.Fitness = math.Inf(-1)
		}
	}
}

// InitializePopulation creates the initial population: the centre of the
// space followed by uniform samples.
func InitializePopulation(space *Space, size int, rng *rand.Rand) []*GAIndividual {
	population := make([]*GAIndividual, size)
	for i := range population {
		if i == 0 {
			population[i] = &GAIndividual{Point: space.Center()}
			continue
		}
		population[i] = &GAIndividual{Point: space.Sample(rng)}
	}
	return population
}

// SortPopulationByFitness sorts population by fitness (descending)
func SortPopulationByFitness(population []*GAIndividual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness > population[j].Fitness
	})
}

// AverageFitness calculates the average of finite fitness values
func AverageFitness(population []*GAIndividual) float64 {
	sum, n := 0.0, 0
	for _, ind := range population {
		if !math.IsInf(ind.Fitness, 0) {
			sum += ind.Fitness
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CreateNextGeneration keeps the elite and fills the rest with mutated
// offspring of tournament-selected parents.
func CreateNextGeneration(space *Space, population []*GAIndividual, cfg GAConfig, rng *rand.Rand) []*GAIndividual {
	newPop := make([]*GAIndividual, len(population))

	for i := 0; i < cfg.EliteSize; i++ {
		newPop[i] = &GAIndividual{
			Point:     population[i].Point.Clone(),
			Fitness:   population[i].Fitness,
			Evaluated: population[i].Evaluated,
		}
	}

	for i := cfg.EliteSize; i < len(population); i++ {
		parent1 := TournamentSelection(population, cfg.TournamentSize, rng)
		parent2 := TournamentSelection(population, cfg.TournamentSize, rng)

		child := Crossover(parent1, parent2, cfg.CrossoverRate, rng)
		Mutate(space, child, cfg.MutationRate, rng)
		child.Point = space.Normalize(child.Point)

		newPop[i] = child
	}

	return newPop
}

// TournamentSelection performs tournament selection
func TournamentSelection(population []*GAIndividual, tournamentSize int, rng *rand.Rand) *GAIndividual {
	best := population[rng.Intn(len(population))]

	for i := 1; i < tournamentSize; i++ {
		candidate := population[rng.Intn(len(population))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}

	return best
}

// Crossover creates a child from two parents with uniform gene mixing
func Crossover(parent1, parent2 *GAIndividual, rate float64, rng *rand.Rand) *GAIndividual {
	child := &GAIndividual{Point: parent1.Point.Clone()}

	if rng.Float64() < rate {
		for _, name := range sortedNames(parent1.Point) {
			if rng.Float64() < 0.5 {
				child.Point[name] = parent2.Point[name]
			}
		}
	}

	return child
}

// Mutate perturbs each gene with probability rate by a normal step scaled to
// the parameter width. Integer genes always move by at least one.
func Mutate(space *Space, individual *GAIndividual, rate float64, rng *rand.Rand) {
	for _, param := range space.Params() {
		if rng.Float64() >= rate || param.Width() == 0 {
			continue
		}
		step := rng.NormFloat64() * GAMutationScale * param.Width()
		if param.Kind == Integer && math.Abs(step) < 1 {
			step = RandomChoice([]float64{-1, 1}, rng)
		}
		individual.Point[param.Name] += step
	}
	individual.Evaluated = false
}

// RandomChoice selects a random element from a slice
func RandomChoice[T any](choices []T, rng *rand.Rand) T {
	if len(choices) == 0 {
		var zero T
		return zero
	}
	return choices[rng.Intn(len(choices))]
}

func sortedNames(p Point) []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
