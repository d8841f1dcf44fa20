// Package aggregate holds the in-memory statistics used by report views:
// averages, standard competition ranking, grouping and grade predicates.
package aggregate

import "math"

// Mean returns the arithmetic mean of values and false when values is empty.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// MeanOf averages the non-nil values.
func MeanOf(values ...*float64) (float64, bool) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	return Mean(present)
}

// OverallAverage is the mean of the category sub-averages that are present.
// A student with no recorded category averages 0.
func OverallAverage(categories ...*float64) float64 {
	avg, ok := MeanOf(categories...)
	if !ok {
		return 0
	}
	return avg
}

// Round1 rounds to one decimal place for display. Stored values keep full precision.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Ptr is a convenience for building optional values.
func Ptr(v float64) *float64 {
	return &v
}
