package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreedyRepairKeepsRequiredItemsWhenStillInfeasible(t *testing.T) {
	ev := scenarioEvaluator(t, 5)
	rng := rand.New(rand.NewSource(1))
	ind := &Individual{Genes: []bool{true, true, true, true}}

	// Every single removal from the full set still leaves weight > 5.
	removed := GreedyRepair{RevertProbability: DefaultRevertProbability}.Improve(rng, ind, ev)
	assert.Zero(t, removed)
	assert.Equal(t, "1111", ind.String())
}

func TestGreedyRepairDecisionsAreCumulative(t *testing.T) {
	ev := scenarioEvaluator(t, 12)
	rng := rand.New(rand.NewSource(1))
	ind := &Individual{Genes: []bool{true, true, true, true}}

	// With no random reverts each feasible removal sticks until the genome
	// would become empty, which scores zero and forces the last item back.
	removed := GreedyRepair{RevertProbability: 0}.Improve(rng, ind, ev)
	assert.Equal(t, 3, removed)
	assert.Equal(t, "0001", ind.String())
}

func TestGreedyRepairAlwaysRevertsAtFullProbability(t *testing.T) {
	ev := scenarioEvaluator(t, 5)
	rng := rand.New(rand.NewSource(1))
	ind := &Individual{Genes: []bool{true, true, false, false}}

	removed := GreedyRepair{RevertProbability: 1}.Improve(rng, ind, ev)
	assert.Zero(t, removed)
	assert.Equal(t, "1100", ind.String())
}

func TestGreedyRepairSkipsExcludedGenes(t *testing.T) {
	ev := scenarioEvaluator(t, 5)
	rng := rand.New(rand.NewSource(1))
	ind := &Individual{Genes: []bool{false, false, false, false}}

	before := ev.Evaluations()
	GreedyRepair{RevertProbability: 0.5}.Improve(rng, ind, ev)
	assert.Equal(t, before, ev.Evaluations())
	assert.Equal(t, "0000", ind.String())
}

func TestGreedyRepairRevertsAboutHalfOfFeasibleRemovals(t *testing.T) {
	ev := scenarioEvaluator(t, 100)
	rng := rand.New(rand.NewSource(77))
	repair := GreedyRepair{RevertProbability: DefaultRevertProbability}

	// Starting from {0,1} the first removal is always feasible, so whether
	// item 0 ends up excluded is a fair coin.
	kept := 0
	const trials = 4000
	for i := 0; i < trials; i++ {
		ind := &Individual{Genes: []bool{true, true, false, false}}
		repair.Improve(rng, ind, ev)
		if !ind.Genes[0] {
			kept++
		}
	}
	assert.InDelta(t, 0.5, float64(kept)/trials, 0.03)
}
