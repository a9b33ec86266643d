package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses a parent index from a population sorted by descending fitness.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked Population) (int, error)
}

// truncationPool is the size of the top half that parents are drawn from.
func truncationPool(ranked Population) (int, error) {
	if len(ranked) < 2 {
		return 0, fmt.Errorf("ranked population too small: %d", len(ranked))
	}
	return len(ranked) / 2, nil
}

// TruncationSelector picks uniformly, with replacement, from the top half of
// the ranked population. Zero-fitness pools are not special-cased.
type TruncationSelector struct{}

func (TruncationSelector) Name() string {
	return "truncation"
}

func (TruncationSelector) PickParent(rng *rand.Rand, ranked Population) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	pool, err := truncationPool(ranked)
	if err != nil {
		return 0, err
	}
	return rng.Intn(pool), nil
}

// TournamentSelector samples TournamentSize candidates from the top half and
// keeps the fittest; ties go to the earlier draw.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked Population) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	pool, err := truncationPool(ranked)
	if err != nil {
		return 0, err
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}

	best := rng.Intn(pool)
	for i := 1; i < tournamentSize; i++ {
		candidate := rng.Intn(pool)
		if ranked[candidate].Fitness > ranked[best].Fitness {
			best = candidate
		}
	}
	return best, nil
}
