// Package catalog holds the fixed item set a knapsack run searches over.
package catalog

import (
	"errors"
	"fmt"
	"math/rand"

	"knapsackga/internal/model"
)

var ErrInvalidItem = errors.New("invalid catalog item")

// Catalog is an immutable, index-addressed list of items.
type Catalog struct {
	items []model.Item
}

// New validates and copies items into a catalog.
func New(items []model.Item) (*Catalog, error) {
	copied := make([]model.Item, len(items))
	for i, item := range items {
		if item.Weight <= 0 || item.Value <= 0 {
			return nil, fmt.Errorf("%w at index %d: weight=%d value=%d", ErrInvalidItem, i, item.Weight, item.Value)
		}
		copied[i] = item
	}
	return &Catalog{items: copied}, nil
}

// MustNew is New for fixed, known-good item sets.
func MustNew(items []model.Item) *Catalog {
	c, err := New(items)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.items)
}

func (c *Catalog) Item(i int) model.Item {
	return c.items[i]
}

// Items returns a copy of the catalog contents.
func (c *Catalog) Items() []model.Item {
	return append([]model.Item(nil), c.items...)
}

func (c *Catalog) TotalWeight() int {
	total := 0
	for _, item := range c.items {
		total += item.Weight
	}
	return total
}

func (c *Catalog) TotalValue() int {
	total := 0
	for _, item := range c.items {
		total += item.Value
	}
	return total
}

// Ranges bounds the inclusive weight and value intervals used by Generate.
type Ranges struct {
	MinWeight int
	MaxWeight int
	MinValue  int
	MaxValue  int
}

// DefaultRanges draws weights in [1,5] and values in [2,10].
func DefaultRanges() Ranges {
	return Ranges{MinWeight: 1, MaxWeight: 5, MinValue: 2, MaxValue: 10}
}

func (r Ranges) validate() error {
	if r.MinWeight <= 0 || r.MaxWeight < r.MinWeight {
		return fmt.Errorf("invalid weight range [%d,%d]", r.MinWeight, r.MaxWeight)
	}
	if r.MinValue <= 0 || r.MaxValue < r.MinValue {
		return fmt.Errorf("invalid value range [%d,%d]", r.MinValue, r.MaxValue)
	}
	return nil
}

// Generate draws n items from rng. Weight is drawn before value for each
// item so a given seed always yields the same catalog.
func Generate(rng *rand.Rand, n int, ranges Ranges) (*Catalog, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if n <= 0 {
		return nil, fmt.Errorf("item count must be > 0")
	}
	if err := ranges.validate(); err != nil {
		return nil, err
	}

	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			Weight: rng.Intn(ranges.MaxWeight-ranges.MinWeight+1) + ranges.MinWeight,
			Value:  rng.Intn(ranges.MaxValue-ranges.MinValue+1) + ranges.MinValue,
		}
	}
	return &Catalog{items: items}, nil
}
