package evo

import (
	"bytes"
	"context"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knapsackga/internal/catalog"
	"knapsackga/internal/model"
)

type recordingSelector struct {
	inner Selector
	picks []int
}

func (s *recordingSelector) Name() string {
	return "recording"
}

func (s *recordingSelector) PickParent(rng *rand.Rand, ranked Population) (int, error) {
	idx, err := s.inner.PickParent(rng, ranked)
	if err == nil {
		s.picks = append(s.picks, idx)
	}
	return idx, err
}

func generatedEvaluator(t *testing.T, seed int64, items, capacity int) *Evaluator {
	t.Helper()
	c, err := catalog.Generate(rand.New(rand.NewSource(seed)), items, catalog.DefaultRanges())
	require.NoError(t, err)
	ev, err := NewEvaluator(c, capacity)
	require.NoError(t, err)
	return ev
}

func TestConfigValidate(t *testing.T) {
	valid := Config{PopulationSize: 4, Iterations: 1, LogStep: 1, MutationRate: 0.05}
	require.NoError(t, valid.Validate())

	cases := map[string]Config{
		"odd population":  {PopulationSize: 5, Iterations: 1, LogStep: 1},
		"zero population": {PopulationSize: 0, Iterations: 1, LogStep: 1},
		"no iterations":   {PopulationSize: 4, Iterations: 0, LogStep: 1},
		"no log step":     {PopulationSize: 4, Iterations: 1, LogStep: 0},
		"rate too high":   {PopulationSize: 4, Iterations: 1, LogStep: 1, MutationRate: 1.5},
		"bad revert":      {PopulationSize: 4, Iterations: 1, LogStep: 1, Repair: &GreedyRepair{RevertProbability: -1}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	_, err := NewDriver(valid, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReproduceSmallPopulation(t *testing.T) {
	ev := scenarioEvaluator(t, 5)
	selector := &recordingSelector{inner: TruncationSelector{}}
	driver, err := NewDriver(Config{
		PopulationSize: 4,
		Iterations:     1,
		LogStep:        1,
		MutationRate:   DefaultMutationRate,
		Selector:       selector,
	}, ev)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(99))
	ranked, err := NewRandomPopulation(rng, 4, 4)
	require.NoError(t, err)
	ranked.EvaluateAll(ev)
	ranked.SortByFitness()

	children, err := driver.Reproduce(rng, ranked)
	require.NoError(t, err)
	require.Len(t, children, 4)
	require.Len(t, selector.picks, 4)
	for _, idx := range selector.picks {
		assert.Contains(t, []int{0, 1}, idx)
	}
	for _, child := range children {
		assert.Equal(t, 4, child.Len())
		assert.Equal(t, ev.Measure(child.Genes).Fitness, child.Fitness, "children are evaluated")
	}
}

func TestReproduceKeepsPopulationSize(t *testing.T) {
	ev := generatedEvaluator(t, 1, 30, 45)
	driver, err := NewDriver(Config{PopulationSize: 20, Iterations: 1, LogStep: 1, MutationRate: 0.05}, ev)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	pop, err := NewRandomPopulation(rng, 20, 30)
	require.NoError(t, err)
	for generation := 0; generation < 15; generation++ {
		pop.EvaluateAll(ev)
		pop.SortByFitness()
		pop, err = driver.Reproduce(rng, pop)
		require.NoError(t, err)
		require.Len(t, pop, 20)
		for _, ind := range pop {
			require.Equal(t, 30, ind.Len())
		}
	}
}

func TestDriverRunSamplesEveryLogStep(t *testing.T) {
	ev := generatedEvaluator(t, 3, 40, 60)
	var history History
	var out bytes.Buffer
	driver, err := NewDriver(Config{
		PopulationSize: 10,
		Iterations:     45,
		LogStep:        20,
		MutationRate:   0.05,
	}, ev, &history, ProgressWriter{W: &out})
	require.NoError(t, err)

	result, err := driver.Run(context.Background(), rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	iterations := make([]int, 0, len(result.History))
	for _, sample := range result.History {
		iterations = append(iterations, sample.Iteration)
	}
	assert.Equal(t, []int{0, 20, 40}, iterations)
	assert.Equal(t, result.History, history.Samples())
	assert.Len(t, result.Diagnostics, 3)
	for i, diag := range result.Diagnostics {
		assert.Equal(t, result.History[i].BestFitness, diag.BestFitness)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Iteration 0: Best Fitness = "+strconv.Itoa(result.History[0].BestFitness), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "Iteration 40: Best Fitness = "))

	require.NotNil(t, result.Best)
	assert.Len(t, result.FinalPopulation, 10)
	assert.True(t, result.FinalPopulation.IsSorted())
	assert.Equal(t, result.FinalPopulation[0].Fitness, result.Best.Fitness)
	assert.Equal(t, result.Best.Fitness, result.BestMeasurement.Fitness)
	assert.Positive(t, result.Evaluations)
}

func TestDriverRunIsReproducible(t *testing.T) {
	run := func() RunResult {
		ev := generatedEvaluator(t, 5, 50, 75)
		driver, err := NewDriver(Config{PopulationSize: 16, Iterations: 30, LogStep: 5, MutationRate: 0.05}, ev)
		require.NoError(t, err)
		result, err := driver.Run(context.Background(), rand.New(rand.NewSource(42)))
		require.NoError(t, err)
		return result
	}

	a, b := run(), run()
	assert.Equal(t, a.History, b.History)
	assert.Equal(t, a.Best.String(), b.Best.String())
	assert.Equal(t, a.Evaluations, b.Evaluations)
}

func TestDriverRunCountsOnlyItsOwnEvaluations(t *testing.T) {
	ev := generatedEvaluator(t, 5, 40, 60)
	driver, err := NewDriver(Config{PopulationSize: 8, Iterations: 12, LogStep: 4, MutationRate: 0.05}, ev)
	require.NoError(t, err)

	first, err := driver.Run(context.Background(), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	afterFirst := ev.Evaluations()
	second, err := driver.Run(context.Background(), rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	assert.Positive(t, first.Evaluations)
	assert.Equal(t, first.Evaluations, second.Evaluations)
	assert.Equal(t, ev.Evaluations()-afterFirst, second.Evaluations)
}

func TestDriverRunHonoursCancellation(t *testing.T) {
	ev := generatedEvaluator(t, 5, 20, 30)
	driver, err := NewDriver(Config{PopulationSize: 4, Iterations: 10, LogStep: 1}, ev)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = driver.Run(ctx, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = driver.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestDriverBestFitnessImprovesOnAverage(t *testing.T) {
	var first, last float64
	const seeds = 6
	for seed := int64(0); seed < seeds; seed++ {
		ev := generatedEvaluator(t, 100+seed, 60, 90)
		var history History
		driver, err := NewDriver(Config{PopulationSize: 30, Iterations: 80, LogStep: 10, MutationRate: DefaultMutationRate}, ev, &history)
		require.NoError(t, err)
		_, err = driver.Run(context.Background(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		samples := history.Samples()
		first += float64(samples[0].BestFitness)
		last += float64(samples[len(samples)-1].BestFitness)
	}
	assert.GreaterOrEqual(t, last/seeds, first/seeds)
}

func TestRecorderFunc(t *testing.T) {
	var got []model.FitnessSample
	r := RecorderFunc(func(s model.FitnessSample) { got = append(got, s) })
	r.Record(model.FitnessSample{Iteration: 3, BestFitness: 9})
	assert.Equal(t, []model.FitnessSample{{Iteration: 3, BestFitness: 9}}, got)

	var out bytes.Buffer
	ProgressWriter{W: &out}.WriteFinal(42)
	assert.Equal(t, "Final Best Fitness: 42\n", out.String())
}
