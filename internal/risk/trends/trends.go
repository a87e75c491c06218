// Package trends fits year-over-year exceedance rate trends via ordinary
// least squares, with an approximate, table-stepped p-value.
package trends

import (
	"math"
	"sort"

	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
)

// ErrInsufficientYears is returned when fewer than two distinct years are
// present in the supplied points.
var ErrInsufficientYears = errInsufficientYears{}

type errInsufficientYears struct{}

func (errInsufficientYears) Error() string { return "trends: need at least 2 distinct years" }

// ExceedanceRatesByYear groups samples by year and computes, for each
// year, the fraction satisfying predicate.
func ExceedanceRatesByYear(samples []model.WeatherSample, predicate func(model.WeatherSample) bool) []model.TrendPoint {
	counts := map[int]int{}
	totals := map[int]int{}

	for _, s := range samples {
		totals[s.Year]++
		if predicate(s) {
			counts[s.Year]++
		}
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	sort.Ints(years)

	points := make([]model.TrendPoint, len(years))
	for i, y := range years {
		points[i] = model.TrendPoint{
			Year: y,
			Rate: float64(counts[y]) / float64(totals[y]),
		}
	}
	return points
}

// olsSlopeAndPValue fits slope via OLS and approximates a two-sided
// p-value from the t-statistic, stepped through the fixed thresholds
// {2.576, 1.96, 1.645} mapping to {0.01, 0.05, 0.10}, else 0.5.
func olsSlopeAndPValue(points []model.TrendPoint) (slope, pValue float64) {
	n := len(points)
	if n < 3 {
		return 0, 1
	}

	var xSum, ySum float64
	for _, p := range points {
		xSum += float64(p.Year)
		ySum += p.Rate
	}
	xMean := xSum / float64(n)
	yMean := ySum / float64(n)

	var sxx, sxy float64
	for _, p := range points {
		dx := float64(p.Year) - xMean
		dy := p.Rate - yMean
		sxx += dx * dx
		sxy += dx * dy
	}

	if sxx == 0 {
		return 0, 1.0
	}

	slope = sxy / sxx
	intercept := yMean - slope*xMean

	var sse float64
	for _, p := range points {
		predicted := intercept + slope*float64(p.Year)
		residual := p.Rate - predicted
		sse += residual * residual
	}

	se := math.Sqrt((sse / float64(n-2)) / sxx)
	if se == 0 {
		if slope == 0 {
			return 0, 1.0
		}
		return slope, 0.01
	}

	t := math.Abs(slope / se)
	switch {
	case t >= 2.576:
		pValue = 0.01
	case t >= 1.96:
		pValue = 0.05
	case t >= 1.645:
		pValue = 0.10
	default:
		pValue = 0.5
	}

	return slope, pValue
}

// Calculate fits a Trend from the exceedance points. It requires at
// least 2 distinct years.
func Calculate(points []model.TrendPoint) (model.Trend, error) {
	if len(points) < 2 {
		return model.Trend{}, ErrInsufficientYears
	}

	slope, pValue := olsSlopeAndPValue(points)

	return model.Trend{
		Points:      points,
		Slope:       slope,
		PValue:      pValue,
		Significant: pValue < 0.05,
	}, nil
}

// predicateFor returns the predicate function for a condition kind, given
// a per-sample flagger.
func predicateFor(kind model.ConditionKind, flagFn func(model.WeatherSample) model.ConditionFlags) func(model.WeatherSample) bool {
	return func(s model.WeatherSample) bool {
		flags := flagFn(s)
		switch kind {
		case model.ConditionHot:
			return flags.VeryHot
		case model.ConditionCold:
			return flags.VeryCold
		case model.ConditionWindy:
			return flags.VeryWindy
		case model.ConditionWet:
			return flags.VeryWet
		case model.ConditionAny:
			return flags.AnyFlagged()
		case model.ConditionMultiple:
			return flags.CountFlagged() >= 2
		default:
			return false
		}
	}
}

// CalculateAll computes trends for hot/cold/windy/wet/any, skipping any
// condition kind with fewer than 2 distinct years of data.
func CalculateAll(samples []model.WeatherSample, flagFn func(model.WeatherSample) model.ConditionFlags) map[model.ConditionKind]model.Trend {
	kinds := []model.ConditionKind{
		model.ConditionHot, model.ConditionCold, model.ConditionWindy,
		model.ConditionWet, model.ConditionAny,
	}

	out := make(map[model.ConditionKind]model.Trend)
	for _, kind := range kinds {
		points := ExceedanceRatesByYear(samples, predicateFor(kind, flagFn))
		trend, err := Calculate(points)
		if err != nil {
			continue
		}
		out[kind] = trend
	}
	return out
}
