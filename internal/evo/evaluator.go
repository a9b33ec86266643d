package evo

import (
	"fmt"

	"knapsackga/internal/catalog"
)

// Measurement is the raw outcome of scoring a genome.
type Measurement struct {
	Weight   int  `json:"weight"`
	Value    int  `json:"value"`
	Fitness  int  `json:"fitness"`
	Feasible bool `json:"feasible"`
}

// Evaluator scores genomes against a fixed catalog and capacity bound.
// Infeasible genomes score zero; they are kept, not rejected.
type Evaluator struct {
	catalog     *catalog.Catalog
	capacity    int
	evaluations int64
}

func NewEvaluator(items *catalog.Catalog, capacity int) (*Evaluator, error) {
	if items == nil || items.Len() == 0 {
		return nil, fmt.Errorf("catalog is required")
	}
	if capacity < 0 {
		return nil, fmt.Errorf("capacity must be >= 0")
	}
	return &Evaluator{catalog: items, capacity: capacity}, nil
}

func (e *Evaluator) Catalog() *catalog.Catalog {
	return e.catalog
}

func (e *Evaluator) Capacity() int {
	return e.capacity
}

// GenomeLength is the required gene count of every individual.
func (e *Evaluator) GenomeLength() int {
	return e.catalog.Len()
}

// Evaluations reports how many genomes have been measured so far.
func (e *Evaluator) Evaluations() int64 {
	return e.evaluations
}

// Measure sums weight and value over the included genes. It panics when the
// genome length does not match the catalog.
func (e *Evaluator) Measure(genes []bool) Measurement {
	if len(genes) != e.catalog.Len() {
		panic(fmt.Sprintf("evo: genome length %d does not match catalog size %d", len(genes), e.catalog.Len()))
	}
	e.evaluations++

	var m Measurement
	for i, included := range genes {
		if !included {
			continue
		}
		item := e.catalog.Item(i)
		m.Weight += item.Weight
		m.Value += item.Value
	}
	m.Feasible = m.Weight <= e.capacity
	if m.Feasible {
		m.Fitness = m.Value
	}
	return m
}

// Evaluate refreshes the cached fitness of ind and returns it.
func (e *Evaluator) Evaluate(ind *Individual) int {
	ind.Fitness = e.Measure(ind.Genes).Fitness
	return ind.Fitness
}
