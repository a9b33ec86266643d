package evo

import "math/rand"

const DefaultMutationRate = 0.05

// BitFlipMutation flips every gene independently with probability Rate.
// It does not look at feasibility.
type BitFlipMutation struct {
	Rate float64
}

func (BitFlipMutation) Name() string {
	return "bit_flip"
}

// Mutate changes ind in place and returns the number of flipped genes.
// One uniform draw is consumed per gene even when Rate is zero.
func (m BitFlipMutation) Mutate(rng *rand.Rand, ind *Individual) int {
	flips := 0
	for i := range ind.Genes {
		if rng.Float64() < m.Rate {
			ind.Genes[i] = !ind.Genes[i]
			flips++
		}
	}
	return flips
}
