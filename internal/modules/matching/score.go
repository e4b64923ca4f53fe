package matching

import "math"

// InterestSimilarity is the overlap coefficient |a ∩ b| / sqrt(|a|·|b|).
// It is 0 when either set is empty.
func InterestSimilarity(a, b InterestSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := len(a.Intersect(b))
	return float64(shared) / math.Sqrt(float64(len(a))*float64(len(b)))
}

// Closeness normalizes the shared window by the slower of the two
// theoretical trip durations. Both durations must be positive.
func Closeness(overlapSeconds float64, fastestA, fastestB int) float64 {
	return overlapSeconds / float64(max(fastestA, fastestB))
}

// CompositeScore combines raw overlap, closeness and similarity. It is not
// normalized and only orders candidates within one ranking call.
func CompositeScore(overlapSeconds, closeness, similarity float64) float64 {
	return overlapSeconds * closeness * similarity
}
