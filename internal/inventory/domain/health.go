package domain

import "math"

// HealthPercentage scores stock against its minimum threshold:
// ((available - minimum) / minimum) * 100, rounded to two decimals.
// A minimum of zero means no target has been configured, so the score
// is 0.0 rather than undefined. The result is unbounded in both
// directions: negative below the minimum, above 100 past double it.
//
// Every write path must go through this one function; the persistence
// hook and the reconciler are required to agree on rounding exactly.
func HealthPercentage(available, minimum int) float64 {
	if minimum == 0 {
		return 0.0
	}
	raw := float64(available-minimum) / float64(minimum) * 100
	return math.Round(raw*100) / 100
}
