package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"knapsackga/internal/model"
)

const (
	DefaultPopulationSize = 100
	DefaultIterations     = 1000
	DefaultLogStep        = 20
)

var ErrInvalidConfig = errors.New("invalid driver config")

type Config struct {
	PopulationSize int
	Iterations     int
	MutationRate   float64
	LogStep        int
	Selector       Selector
	// Repair defaults to GreedyRepair with DefaultRevertProbability.
	Repair *GreedyRepair
	Logger *slog.Logger
}

func (c Config) Validate() error {
	if c.PopulationSize <= 0 || c.PopulationSize%2 != 0 {
		return fmt.Errorf("%w: population size must be a positive even number, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be > 0", ErrInvalidConfig)
	}
	if c.LogStep <= 0 {
		return fmt.Errorf("%w: log step must be > 0", ErrInvalidConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0,1], got %v", ErrInvalidConfig, c.MutationRate)
	}
	if c.Repair != nil && (c.Repair.RevertProbability < 0 || c.Repair.RevertProbability > 1) {
		return fmt.Errorf("%w: revert probability must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}

type RunResult struct {
	History         []model.FitnessSample
	Diagnostics     []model.GenerationDiagnostics
	Best            *Individual
	BestMeasurement Measurement
	FinalPopulation Population
	Evaluations     int64
}

// Driver owns one population at a time and runs the generational loop:
// evaluate, sort, sample every LogStep iterations, then replace the whole
// population with children.
type Driver struct {
	cfg       Config
	eval      *Evaluator
	mutation  BitFlipMutation
	repair    GreedyRepair
	recorders []Recorder
	logger    *slog.Logger
}

func NewDriver(cfg Config, eval *Evaluator, recorders ...Recorder) (*Driver, error) {
	if eval == nil {
		return nil, fmt.Errorf("%w: evaluator is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Selector == nil {
		cfg.Selector = TruncationSelector{}
	}
	repair := GreedyRepair{RevertProbability: DefaultRevertProbability}
	if cfg.Repair != nil {
		repair = *cfg.Repair
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		cfg:       cfg,
		eval:      eval,
		mutation:  BitFlipMutation{Rate: cfg.MutationRate},
		repair:    repair,
		recorders: recorders,
		logger:    logger,
	}, nil
}

// Run executes exactly cfg.Iterations generations. There is no convergence
// stop; ctx is only consulted between generations so an external abort can
// end the run early.
func (d *Driver) Run(ctx context.Context, rng *rand.Rand) (RunResult, error) {
	if rng == nil {
		return RunResult{}, fmt.Errorf("random source is required")
	}

	startEvaluations := d.eval.Evaluations()
	population, err := NewRandomPopulation(rng, d.cfg.PopulationSize, d.eval.GenomeLength())
	if err != nil {
		return RunResult{}, err
	}

	history := make([]model.FitnessSample, 0, d.cfg.Iterations/d.cfg.LogStep+1)
	diagnostics := make([]model.GenerationDiagnostics, 0, cap(history))

	for iteration := 0; iteration < d.cfg.Iterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		population.EvaluateAll(d.eval)
		population.SortByFitness()

		if iteration%d.cfg.LogStep == 0 {
			sample := model.FitnessSample{Iteration: iteration, BestFitness: population[0].Fitness}
			history = append(history, sample)
			for _, r := range d.recorders {
				r.Record(sample)
			}
			diag := summarizeGeneration(population, iteration)
			diagnostics = append(diagnostics, diag)
			d.logger.Debug("generation",
				"iteration", iteration,
				"best_fitness", diag.BestFitness,
				"mean_fitness", diag.MeanFitness,
				"feasible", diag.FeasibleCount,
				"diversity", diag.Diversity,
			)
		}

		population, err = d.Reproduce(rng, population)
		if err != nil {
			return RunResult{}, fmt.Errorf("iteration %d: %w", iteration, err)
		}
	}

	// Children are already evaluated; rank them so the report names the best.
	population.SortByFitness()
	best := population.Best().Clone()
	measurement := d.eval.Measure(best.Genes)

	return RunResult{
		History:         history,
		Diagnostics:     diagnostics,
		Best:            best,
		BestMeasurement: measurement,
		FinalPopulation: population,
		Evaluations:     d.eval.Evaluations() - startEvaluations,
	}, nil
}

// Reproduce builds a full replacement generation from a ranked population.
// Each pair is produced by selection, uniform crossover, mutation, greedy
// repair and a final evaluation, always in that order.
func (d *Driver) Reproduce(rng *rand.Rand, ranked Population) (Population, error) {
	next := make(Population, 0, d.cfg.PopulationSize)
	for i := 0; i < d.cfg.PopulationSize/2; i++ {
		p1, err := d.cfg.Selector.PickParent(rng, ranked)
		if err != nil {
			return nil, err
		}
		p2, err := d.cfg.Selector.PickParent(rng, ranked)
		if err != nil {
			return nil, err
		}

		child1, child2 := UniformCrossover(rng, ranked[p1], ranked[p2])

		d.mutation.Mutate(rng, child1)
		d.mutation.Mutate(rng, child2)

		d.repair.Improve(rng, child1, d.eval)
		d.repair.Improve(rng, child2, d.eval)

		d.eval.Evaluate(child1)
		d.eval.Evaluate(child2)

		next = append(next, child1, child2)
	}
	return next, nil
}

func summarizeGeneration(population Population, iteration int) model.GenerationDiagnostics {
	summary := population.Summarize()
	return model.GenerationDiagnostics{
		Iteration:     iteration,
		BestFitness:   summary.BestFitness,
		MeanFitness:   summary.MeanFitness,
		MinFitness:    summary.MinFitness,
		FeasibleCount: summary.FeasibleCount,
		Diversity:     summary.Diversity,
	}
}
