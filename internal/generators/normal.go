package generators

import "math/rand"

// Rejection sampling cannot be allowed to spin forever on pathological
// bounds, so attempts are capped and the last sample is clamped instead.
const maxNormalAttempts = 1000

// SampleTruncatedNormal draws from N(mean, stdDev) until the sample lands
// inside [min, max]. The returned flag is true when the attempt cap was hit
// and the value was clamped to the nearest bound.
func SampleTruncatedNormal(rng *rand.Rand, mean, stdDev, min, max float64) (float64, bool) {
	var v float64
	for i := 0; i < maxNormalAttempts; i++ {
		v = rng.NormFloat64()*stdDev + mean
		if v >= min && v <= max {
			return v, false
		}
	}
	if v < min {
		return min, true
	}
	return max, true
}
