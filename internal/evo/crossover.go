package evo

import "math/rand"

// UniformCrossover builds two complementary children. At each locus a fair
// coin decides whether child1 takes parent1's gene (and child2 parent2's) or
// the reverse.
func UniformCrossover(rng *rand.Rand, parent1, parent2 *Individual) (*Individual, *Individual) {
	if parent1.Len() != parent2.Len() {
		panic("evo: crossover parents differ in genome length")
	}
	child1 := NewIndividual(parent1.Len())
	child2 := NewIndividual(parent1.Len())
	for i := range parent1.Genes {
		if rng.Intn(2) == 1 {
			child1.Genes[i] = parent1.Genes[i]
			child2.Genes[i] = parent2.Genes[i]
		} else {
			child1.Genes[i] = parent2.Genes[i]
			child2.Genes[i] = parent1.Genes[i]
		}
	}
	return child1, child2
}
