// Package baseline computes rolling reference statistics over snapshot
// windows. All functions are pure.
package baseline

import "math"

// stdev below this is treated as a flat series; z-scores are undefined.
const flatEps = 1e-9

// Baseline summarizes a historical window of one metric.
type Baseline struct {
	Mean  float64
	Stdev float64
	Count int
}

// Compute returns the baseline over values. The second return is false when
// fewer than minSamples observations are available; callers must treat that
// as "cannot judge", not as a zero baseline.
func Compute(values []float64, minSamples int) (Baseline, bool) {
	if minSamples < 1 {
		minSamples = 1
	}
	if len(values) < minSamples {
		return Baseline{Count: len(values)}, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return Baseline{Mean: mean, Stdev: math.Sqrt(variance), Count: len(values)}, true
}

// ZScore returns the standard score of value against the baseline. The
// second return is false when the window is too flat for a meaningful score.
func (b Baseline) ZScore(value float64) (float64, bool) {
	if b.Stdev < flatEps {
		return 0, false
	}
	return (value - b.Mean) / b.Stdev, true
}

// Ratio returns value relative to the baseline mean. A near-zero mean yields
// ok=false rather than an unbounded ratio.
func (b Baseline) Ratio(value float64) (float64, bool) {
	if math.Abs(b.Mean) < flatEps {
		return 0, false
	}
	return value / b.Mean, true
}

// Reference splits a window into its historical part and the current value.
// The most recent observation is excluded from the reference so a spike does
// not inflate its own baseline.
func Reference(values []float64) (history []float64, current float64, ok bool) {
	if len(values) < 2 {
		return nil, 0, false
	}
	return values[:len(values)-1], values[len(values)-1], true
}
