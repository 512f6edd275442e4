package generators

import (
	"errors"
	"math/rand"
)

// WeightedChoice draws one value with probability proportional to its
// weight. Weights are relative and need not sum to 1.
func WeightedChoice(rng *rand.Rand, values []string, weights []float64) (string, error) {
	if len(values) == 0 {
		return "", errors.New("empty candidate list")
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return "", errors.New("total weight is zero")
	}

	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return values[i], nil
		}
	}
	return values[len(values)-1], nil
}
