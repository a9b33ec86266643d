package evo

import (
	"fmt"
	"math/rand"
	"sort"
)

// Population is the set of individuals of one generation. Order only matters
// right after SortByFitness.
type Population []*Individual

// NewRandomPopulation builds size unevaluated individuals of the given genome length.
func NewRandomPopulation(rng *rand.Rand, size, length int) (Population, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if size <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if length <= 0 {
		return nil, fmt.Errorf("genome length must be > 0")
	}
	pop := make(Population, size)
	for i := range pop {
		pop[i] = RandomIndividual(rng, length)
	}
	return pop, nil
}

func (p Population) EvaluateAll(ev *Evaluator) {
	for _, ind := range p {
		ev.Evaluate(ind)
	}
}

// SortByFitness orders the population by descending cached fitness, keeping
// the relative order of ties.
func (p Population) SortByFitness() {
	sort.SliceStable(p, func(i, j int) bool {
		return p[i].Fitness > p[j].Fitness
	})
}

func (p Population) IsSorted() bool {
	for i := 1; i < len(p); i++ {
		if p[i-1].Fitness < p[i].Fitness {
			return false
		}
	}
	return true
}

// Best returns the first individual; callers sort beforehand.
func (p Population) Best() *Individual {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

type PopulationSummary struct {
	BestFitness   int
	MeanFitness   float64
	MinFitness    int
	FeasibleCount int
	Diversity     int
}

// Summarize reports fitness statistics from cached values. An individual
// counts as feasible when its fitness is non-zero.
func (p Population) Summarize() PopulationSummary {
	if len(p) == 0 {
		return PopulationSummary{}
	}
	summary := PopulationSummary{BestFitness: p[0].Fitness, MinFitness: p[0].Fitness}
	total := 0
	genomes := make(map[string]struct{}, len(p))
	for _, ind := range p {
		total += ind.Fitness
		if ind.Fitness > summary.BestFitness {
			summary.BestFitness = ind.Fitness
		}
		if ind.Fitness < summary.MinFitness {
			summary.MinFitness = ind.Fitness
		}
		if ind.Fitness > 0 {
			summary.FeasibleCount++
		}
		genomes[ind.String()] = struct{}{}
	}
	summary.MeanFitness = float64(total) / float64(len(p))
	summary.Diversity = len(genomes)
	return summary
}
