package evo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformCrossoverComplementarity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 200; trial++ {
		p1 := RandomIndividual(rng, 64)
		p2 := RandomIndividual(rng, 64)
		c1, c2 := UniformCrossover(rng, p1, p2)

		require.Equal(t, 64, c1.Len())
		require.Equal(t, 64, c2.Len())
		for i := range p1.Genes {
			sameOrder := c1.Genes[i] == p1.Genes[i] && c2.Genes[i] == p2.Genes[i]
			swapped := c1.Genes[i] == p2.Genes[i] && c2.Genes[i] == p1.Genes[i]
			require.True(t, sameOrder || swapped, "trial %d locus %d", trial, i)
		}
	}
}

func TestUniformCrossoverMixesBothParents(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p1 := &Individual{Genes: make([]bool, 256)}
	p2 := &Individual{Genes: make([]bool, 256)}
	for i := range p2.Genes {
		p2.Genes[i] = true
	}
	c1, c2 := UniformCrossover(rng, p1, p2)

	fromP2 := len(c1.Selected())
	assert.Greater(t, fromP2, 80)
	assert.Less(t, fromP2, 176)
	assert.Equal(t, 256, fromP2+len(c2.Selected()))
}

func TestUniformCrossoverDoesNotTouchParents(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p1 := RandomIndividual(rng, 32)
	p2 := RandomIndividual(rng, 32)
	before1, before2 := p1.String(), p2.String()
	UniformCrossover(rng, p1, p2)
	assert.Equal(t, before1, p1.String())
	assert.Equal(t, before2, p2.String())
}

func TestMutationZeroRateIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	m := BitFlipMutation{Rate: 0}
	for trial := 0; trial < 100; trial++ {
		ind := RandomIndividual(rng, 100)
		before := ind.String()
		assert.Zero(t, m.Mutate(rng, ind))
		require.Equal(t, before, ind.String())
	}
}

func TestMutationRateConverges(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	m := BitFlipMutation{Rate: DefaultMutationRate}

	const trials, length = 2000, 100
	flips := 0
	for trial := 0; trial < trials; trial++ {
		ind := RandomIndividual(rng, length)
		before := append([]bool(nil), ind.Genes...)
		reported := m.Mutate(rng, ind)

		changed := 0
		for i := range before {
			if before[i] != ind.Genes[i] {
				changed++
			}
		}
		require.Equal(t, changed, reported)
		flips += changed
	}

	freq := float64(flips) / float64(trials*length)
	assert.InDelta(t, DefaultMutationRate, freq, 0.005)
}

func TestMutationFullRateFlipsEverything(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	ind := &Individual{Genes: []bool{true, false, true}}
	assert.Equal(t, 3, BitFlipMutation{Rate: 1}.Mutate(rng, ind))
	assert.Equal(t, "010", ind.String())
}

func TestTruncationSelectorStaysInTopHalf(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	ranked := make(Population, 10)
	for i := range ranked {
		ranked[i] = &Individual{Genes: []bool{true}, Fitness: 10 - i}
	}

	seen := map[int]int{}
	for i := 0; i < 5000; i++ {
		idx, err := TruncationSelector{}.PickParent(rng, ranked)
		require.NoError(t, err)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 5)
		seen[idx]++
	}
	assert.Len(t, seen, 5)
	for idx, count := range seen {
		assert.InDelta(t, 1000, count, 150, "index %d", idx)
	}
}

func TestTruncationSelectorAllZeroFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ranked := Population{{Genes: []bool{false}}, {Genes: []bool{false}}, {Genes: []bool{false}}, {Genes: []bool{false}}}
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		idx, err := TruncationSelector{}.PickParent(rng, ranked)
		require.NoError(t, err)
		seen[idx] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, seen)
}

func TestSelectorsValidateInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := TruncationSelector{}.PickParent(nil, Population{{}, {}})
	assert.Error(t, err)
	_, err = TruncationSelector{}.PickParent(rng, Population{{}})
	assert.Error(t, err)
	_, err = TournamentSelector{}.PickParent(rng, nil)
	assert.Error(t, err)
}

func TestTournamentSelectorPrefersFitter(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	ranked := make(Population, 20)
	for i := range ranked {
		ranked[i] = &Individual{Genes: []bool{true}, Fitness: 100 - i}
	}

	tournament := TournamentSelector{TournamentSize: 3}
	var tournamentSum, truncationSum int
	for i := 0; i < 2000; i++ {
		idx, err := tournament.PickParent(rng, ranked)
		require.NoError(t, err)
		require.Less(t, idx, 10)
		tournamentSum += idx

		idx, err = TruncationSelector{}.PickParent(rng, ranked)
		require.NoError(t, err)
		truncationSum += idx
	}
	assert.Less(t, tournamentSum, truncationSum)
}

func TestSelectorByName(t *testing.T) {
	for name, want := range map[string]string{"": "truncation", "truncation": "truncation", "tournament": "tournament"} {
		s, err := SelectorByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
	}
	_, err := SelectorByName("roulette")
	assert.Error(t, err)
}

func TestPopulationSortByFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	pop := make(Population, 50)
	for i := range pop {
		pop[i] = &Individual{Genes: []bool{i%2 == 0}, Fitness: rng.Intn(10)}
	}
	firstSeen := map[*Individual]int{}
	for i, ind := range pop {
		firstSeen[ind] = i
	}

	pop.SortByFitness()
	require.True(t, pop.IsSorted())
	for i := 1; i < len(pop); i++ {
		require.GreaterOrEqual(t, pop[i-1].Fitness, pop[i].Fitness)
		if pop[i-1].Fitness == pop[i].Fitness {
			require.Less(t, firstSeen[pop[i-1]], firstSeen[pop[i]], "stable order at %d", i)
		}
	}
	assert.Equal(t, pop[0], pop.Best())
}

func TestNewRandomPopulation(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	pop, err := NewRandomPopulation(rng, 200, 50)
	require.NoError(t, err)
	require.Len(t, pop, 200)

	ones := 0
	for _, ind := range pop {
		require.Equal(t, 50, ind.Len())
		require.Zero(t, ind.Fitness)
		ones += len(ind.Selected())
	}
	assert.InDelta(t, 0.5, float64(ones)/float64(200*50), 0.02)

	_, err = NewRandomPopulation(rng, 0, 10)
	assert.Error(t, err)
	_, err = NewRandomPopulation(nil, 2, 10)
	assert.Error(t, err)
}

func TestPopulationSummarize(t *testing.T) {
	pop := Population{
		{Genes: []bool{true, true}, Fitness: 9},
		{Genes: []bool{true, false}, Fitness: 3},
		{Genes: []bool{true, true}, Fitness: 0},
	}
	summary := pop.Summarize()
	assert.Equal(t, 9, summary.BestFitness)
	assert.Equal(t, 0, summary.MinFitness)
	assert.Equal(t, 2, summary.FeasibleCount)
	assert.Equal(t, 2, summary.Diversity)
	assert.True(t, math.Abs(summary.MeanFitness-4) < 1e-9)
	assert.Equal(t, PopulationSummary{}, Population{}.Summarize())
}
