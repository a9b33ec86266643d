package evo

import (
	"fmt"
	"math/rand"
	"strings"
)

// Individual is a candidate subset encoded as one boolean gene per catalog
// item. Fitness caches the last evaluation and is stale after any change to
// Genes until the individual is evaluated again.
type Individual struct {
	Genes   []bool
	Fitness int
}

func NewIndividual(length int) *Individual {
	return &Individual{Genes: make([]bool, length)}
}

// RandomIndividual sets each gene independently with probability 0.5.
func RandomIndividual(rng *rand.Rand, length int) *Individual {
	ind := NewIndividual(length)
	for i := range ind.Genes {
		ind.Genes[i] = rng.Intn(2) == 1
	}
	return ind
}

func (ind *Individual) Len() int {
	return len(ind.Genes)
}

func (ind *Individual) Clone() *Individual {
	return &Individual{
		Genes:   append([]bool(nil), ind.Genes...),
		Fitness: ind.Fitness,
	}
}

// Selected lists the included item indices in catalog order.
func (ind *Individual) Selected() []int {
	selected := make([]int, 0, len(ind.Genes))
	for i, gene := range ind.Genes {
		if gene {
			selected = append(selected, i)
		}
	}
	return selected
}

// String renders the genome as a bit string, gene 0 first.
func (ind *Individual) String() string {
	var b strings.Builder
	b.Grow(len(ind.Genes))
	for _, gene := range ind.Genes {
		if gene {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseGenes is the inverse of Individual.String.
func ParseGenes(s string) ([]bool, error) {
	genes := make([]bool, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			genes[i] = true
		case '0':
		default:
			return nil, fmt.Errorf("invalid gene character %q at position %d", s[i], i)
		}
	}
	return genes, nil
}
