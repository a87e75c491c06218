// Package distributions builds histogram and descriptive-statistics
// summaries of weather-sample parameters, pinning a threshold value as a
// bin edge when it falls inside the observed range.
package distributions

import (
	"math"
	"sort"

	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
)

// DefaultBinCount is the default number of histogram bins.
const DefaultBinCount = 20

// linspace returns n+1 evenly spaced points from start to stop, inclusive.
func linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return []float64{start, stop}
	}
	out := make([]float64, n+1)
	step := (stop - start) / float64(n)
	for i := 0; i <= n; i++ {
		out[i] = start + step*float64(i)
	}
	out[n] = stop
	return out
}

// binEdges returns the bin edges for values, pinning threshold as an
// interior edge when it lies strictly inside (vmin, vmax).
func binEdges(vmin, vmax float64, threshold *float64, n int) []float64 {
	if threshold != nil && *threshold > vmin && *threshold < vmax {
		half := n / 2
		left := linspace(vmin, *threshold, half)
		right := linspace(*threshold, vmax, n-half)
		return append(left, right[1:]...)
	}
	return linspace(vmin, vmax, n)
}

// Create builds a Distribution from a slice of present (non-missing)
// values, a parameter name/unit, and an optional flagging threshold.
func Create(parameter, unit string, values []float64, threshold *float64) model.Distribution {
	dist := model.Distribution{
		Parameter: parameter,
		Unit:      unit,
		Threshold: threshold,
	}

	if len(values) == 0 {
		return dist
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	vmin, vmax := sorted[0], sorted[len(sorted)-1]

	dist.Mean = mean(values)
	dist.Median = median(sorted)
	dist.Std = stdDev(values, dist.Mean)

	if vmin == vmax {
		dist.Bins = []model.HistogramBin{{
			Low:   vmin,
			High:  vmax,
			Count: len(values),
			Freq:  1.0,
		}}
		return dist
	}

	edges := binEdges(vmin, vmax, threshold, DefaultBinCount)
	counts := make([]int, len(edges)-1)

	for _, v := range values {
		idx := bucketIndex(edges, v)
		counts[idx]++
	}

	total := float64(len(values))
	bins := make([]model.HistogramBin, len(counts))
	for i, c := range counts {
		bins[i] = model.HistogramBin{
			Low:   edges[i],
			High:  edges[i+1],
			Count: c,
			Freq:  float64(c) / total,
		}
	}
	dist.Bins = bins

	return dist
}

// bucketIndex finds the left-closed, right-open bin containing v; the
// final bin is closed on both ends.
func bucketIndex(edges []float64, v float64) int {
	last := len(edges) - 2
	for i := 0; i < len(edges)-1; i++ {
		if i == last {
			if v >= edges[i] && v <= edges[i+1] {
				return i
			}
			continue
		}
		if v >= edges[i] && v < edges[i+1] {
			return i
		}
	}
	if v < edges[0] {
		return 0
	}
	return last
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stdDev(values []float64, m float64) float64 {
	n := len(values)
	if n <= 1 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
