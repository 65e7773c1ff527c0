// Package stats computes the descriptive statistics of a day-of-year bucket.
// Standard deviation is the sample deviation (÷(n−1)). Percentiles use linear
// interpolation between order statistics at rank (n−1)·p.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Well-known percentile thresholds.
const (
	PercentileP25    = 0.25
	PercentileMedian = 0.5
	PercentileP75    = 0.75
)

// Summary describes a non-empty sample.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	HasStd bool // false when Count < 2
	Median float64
	P25    float64
	P75    float64
}

// Describe summarizes values. It reports false for an empty slice. The input
// is not modified, and the result does not depend on its order.
func Describe(values []float64) (Summary, bool) {
	if len(values) == 0 {
		return Summary{}, false
	}

	sorted := Sorted(values)
	s := Summary{
		Count:  len(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: Quantile(sorted, PercentileMedian),
		P25:    Quantile(sorted, PercentileP25),
		P75:    Quantile(sorted, PercentileP75),
	}
	s.Std, s.HasStd = SampleStdDev(sorted)
	return s, true
}

// Sorted returns an ascending copy of values.
func Sorted(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted
}

// SampleStdDev returns the sample standard deviation. It reports false when
// fewer than two values are given.
func SampleStdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	return stat.StdDev(values, nil), true
}

// Quantile returns the p-th quantile of an ascending slice using linear
// interpolation. p is clamped to [0, 1]. Returns NaN for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	count := len(sorted)
	if count == 0 {
		return math.NaN()
	}
	p = max(0, min(p, 1))

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
