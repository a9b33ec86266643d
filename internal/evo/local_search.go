package evo

import "math/rand"

const DefaultRevertProbability = 0.5

// GreedyRepair is a single randomized de-weighting pass over a child. For
// each included item in catalog order it drops the item, re-scores the whole
// genome and puts the item back when the genome is infeasible or, otherwise,
// with probability RevertProbability. Every decision sees the effect of the
// decisions before it in the same pass, so the cost is O(N²) per individual.
type GreedyRepair struct {
	RevertProbability float64
}

func (GreedyRepair) Name() string {
	return "greedy_repair"
}

// Improve edits ind in place and returns how many items stayed removed. The
// cached fitness is left at the last probe and must be refreshed by the caller.
func (r GreedyRepair) Improve(rng *rand.Rand, ind *Individual, ev *Evaluator) int {
	removed := 0
	for i := range ind.Genes {
		if !ind.Genes[i] {
			continue
		}
		ind.Genes[i] = false
		// The coin is only drawn for a feasible probe.
		if ev.Evaluate(ind) == 0 || rng.Float64() < r.RevertProbability {
			ind.Genes[i] = true
			continue
		}
		removed++
	}
	return removed
}
