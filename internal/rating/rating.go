// Package rating holds the pure aggregation rules for movie ratings.
package rating

import (
	"math"
)

const (
	Min = 1.0
	Max = 5.0

	// TopRatedMinReviews is the review count a movie needs to appear in top-rated.
	TopRatedMinReviews = 5
)

// Round1 rounds x to one decimal place with halves rounded up.
func Round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// Result is the average and count of a set of ratings.
type Result struct {
	Average float64
	Count   int
}

// Aggregate returns the rounded mean and count of ratings. No ratings gives {0, 0}.
func Aggregate(ratings []float64) Result {
	if len(ratings) == 0 {
		return Result{}
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return FromMean(sum/float64(len(ratings)), len(ratings))
}

// FromMean rounds a mean computed elsewhere, such as by the database. A zero count
// always yields a zero average.
func FromMean(mean float64, count int) Result {
	if count <= 0 {
		return Result{}
	}
	return Result{Average: Round1(mean), Count: count}
}

// ValidHalfStep reports whether r is in [1, 5] and a multiple of 0.5.
func ValidHalfStep(r float64) bool {
	if r < Min || r > Max || math.IsNaN(r) {
		return false
	}
	return r*2 == math.Trunc(r*2)
}
