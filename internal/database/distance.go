package database

import "math"

// EuclideanDistance computes the L2 distance between two vectors.
// Vectors of different length are never comparable and yield +Inf.
func EuclideanDistance(a, b FeatureVector) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
