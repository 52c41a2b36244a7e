// Package stats computes the descriptive statistics the summary builder
// attaches to each measured metric.
package stats

import (
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// quantileLevels are the percentile points every Stats reports, in the
// order they are always rendered.
var quantileLevels = []float64{1, 5, 10, 25, 50, 75, 90, 95, 99}

// Stats is the descriptive summary for one metric across a run.
type Stats struct {
	Count     int
	Mean      float64
	Min       float64
	Max       float64
	StdDev    float64
	Quantiles map[int]float64 // keyed by percentile point, e.g. 95 -> p95
	HasData   bool
}

// Describe computes Stats over values. An empty input returns a Stats with
// HasData false, so the summary serializer can omit the metric entirely
// rather than emit misleading zeros.
func Describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{HasData: false}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, _ := mstats.Mean(sorted)
	min := sorted[0]
	max := sorted[len(sorted)-1]

	stddev := 0.0
	if len(sorted) > 1 {
		stddev, _ = mstats.StandardDeviationSample(sorted)
	}

	quantiles := make(map[int]float64, len(quantileLevels))
	for _, p := range quantileLevels {
		quantiles[int(p)] = quantileAt(sorted, p/100)
	}

	return Stats{
		Count:     len(sorted),
		Mean:      mean,
		Min:       min,
		Max:       max,
		StdDev:    stddev,
		Quantiles: quantiles,
		HasData:   true,
	}
}

// quantileAt returns the value at index floor((count-1) * p) of sorted,
// which must already be sorted ascending. This is the specific nearest-rank
// variant this project uses rather than montanaflynn's own Percentile,
// which interpolates.
func quantileAt(sorted []float64, p float64) float64 {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
