// Package model holds the data entities shared across the weather-risk
// pipeline: samples, condition flags, probability results, distributions
// and trends. These are plain value types; no package in internal/risk
// does I/O against them directly.
package model

import "time"

// PrecipSource identifies which upstream fed a sample's precipitation value.
type PrecipSource string

const (
	PrecipSourceReanalysis        PrecipSource = "reanalysis"
	PrecipSourceHalfHourly        PrecipSource = "half-hourly"
	PrecipSourceHalfHourlyFallback PrecipSource = "half-hourly-fallback"
)

// WeatherSample is one daily observation pinned to a target local hour.
//
// HeatIndexC, WindChillC and FeelsLikeC follow the validity domains of
// package indices: HeatIndexC/WindChillC are nil outside their domain,
// FeelsLikeC always has a value (it falls back to TempC).
type WeatherSample struct {
	TSUTC   time.Time
	TSLocal time.Time
	Year    int
	DOY     int
	Lat     float64
	Lon     float64

	TempC   float64
	RH      float64
	WindMS  float64

	PrecipDailyMM   float64
	PrecipHourlyMM  *float64
	PrecipSource    PrecipSource

	HeatIndexC  *float64
	WindChillC  *float64
	FeelsLikeC  float64
}

// HourlyPrecipRate returns the per-hour precipitation rate used by the
// threshold engine: PrecipHourlyMM when present, else PrecipDailyMM/24.
func (s WeatherSample) HourlyPrecipRate() float64 {
	if s.PrecipHourlyMM != nil {
		return *s.PrecipHourlyMM
	}
	return s.PrecipDailyMM / 24.0
}

// CoverageMetrics summarizes how much historical data backs a SampleCollection.
type CoverageMetrics struct {
	YearsRequested int
	YearsWithData  int
	TotalSamples   int
	Adequate       bool
}

// SampleCollection is the query envelope plus the samples it produced.
type SampleCollection struct {
	Lat            float64
	Lon            float64
	TargetDate     string // YYYY-MM-DD
	TargetHour     int
	WindowDays     int
	BaselineStart  int
	BaselineEnd    int
	Zone           string

	Samples  []WeatherSample
	Coverage CoverageMetrics
}

// CoverageYears returns max(year)-min(year)+1 across samples, 0 if empty.
func (c SampleCollection) CoverageYears() int {
	if len(c.Samples) == 0 {
		return 0
	}
	min, max := c.Samples[0].Year, c.Samples[0].Year
	for _, s := range c.Samples {
		if s.Year < min {
			min = s.Year
		}
		if s.Year > max {
			max = s.Year
		}
	}
	return max - min + 1
}

// ConditionFlags records which adverse conditions a sample satisfies.
type ConditionFlags struct {
	VeryHot   bool
	VeryCold  bool
	VeryWindy bool
	VeryWet   bool
}

// AnyFlagged reports whether any of the four conditions is true.
func (f ConditionFlags) AnyFlagged() bool {
	return f.VeryHot || f.VeryCold || f.VeryWindy || f.VeryWet
}

// CountFlagged counts how many of the four conditions are true.
func (f ConditionFlags) CountFlagged() int {
	n := 0
	if f.VeryHot {
		n++
	}
	if f.VeryCold {
		n++
	}
	if f.VeryWindy {
		n++
	}
	if f.VeryWet {
		n++
	}
	return n
}

// ConditionKind is one of the six countable condition categories.
type ConditionKind string

const (
	ConditionHot      ConditionKind = "hot"
	ConditionCold     ConditionKind = "cold"
	ConditionWindy    ConditionKind = "windy"
	ConditionWet      ConditionKind = "wet"
	ConditionAny      ConditionKind = "any"
	ConditionMultiple ConditionKind = "multiple"
)

// ProbabilityResult is the Clopper-Pearson exact-binomial estimate for one
// condition kind over one SampleCollection.
type ProbabilityResult struct {
	P             float64
	CILow         float64
	CIHigh        float64
	Level         float64
	N             int
	K             int
	CoverageYears int
	ConditionKind ConditionKind
	AnalysisAt    time.Time
}

// RelativeError is (ciWidth/2)/p, a supplemented convenience metric not
// part of the core invariants; undefined (0) when p is 0.
func (r ProbabilityResult) RelativeError() float64 {
	if r.P == 0 {
		return 0
	}
	return ((r.CIHigh - r.CILow) / 2) / r.P
}

// HistogramBin is one left-closed, right-open bucket of a Distribution
// (the final bin of a Distribution is closed on the right too).
type HistogramBin struct {
	Low   float64
	High  float64
	Count int
	Freq  float64
}

// Distribution is a histogram plus descriptive statistics for one parameter.
type Distribution struct {
	Parameter string
	Unit      string
	Bins      []HistogramBin
	Mean      float64
	Median    float64
	Std       float64
	Threshold *float64
}

// TrendPoint is one year's exceedance rate.
type TrendPoint struct {
	Year int
	Rate float64
}

// Trend is an OLS fit of exceedance rate against year.
type Trend struct {
	Points      []TrendPoint
	Slope       float64
	PValue      float64
	Significant bool
}
