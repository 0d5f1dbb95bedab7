package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction,
// 0 means orthogonal, and -1 means opposite direction.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	if len(a) == 0 {
		return 0
	}

	// Convert float32 slices to float64 for gonum
	aFloat64 := make([]float64, len(a))
	bFloat64 := make([]float64, len(b))
	for i := range a {
		aFloat64[i] = float64(a[i])
		bFloat64[i] = float64(b[i])
	}

	dotProduct := floats.Dot(aFloat64, bFloat64)

	magA := math.Sqrt(floats.Dot(aFloat64, aFloat64))
	magB := math.Sqrt(floats.Dot(bFloat64, bFloat64))

	// Avoid division by zero
	if magA == 0 || magB == 0 {
		return 0
	}

	return dotProduct / (magA * magB)
}
