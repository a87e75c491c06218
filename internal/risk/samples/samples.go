// Package samples collects WeatherSamples for one (lat, lon, DOY,
// localHour, window, baseline) query, year-chunked against the
// reanalysis client, with coverage validation.
package samples

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skyrisk/weatherrisk-api/internal/precipitation"
	"github.com/skyrisk/weatherrisk-api/internal/reanalysis"
	"github.com/skyrisk/weatherrisk-api/internal/risk/indices"
	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
	"github.com/skyrisk/weatherrisk-api/internal/timezone"
)

// ErrInsufficientCoverage is returned when enforcement is on and the
// collected data does not meet the configured coverage minima.
var ErrInsufficientCoverage = errors.New("samples: insufficient coverage")

// CoverageSettings carries the minima consulted when deciding adequacy.
type CoverageSettings struct {
	MinYears        int
	MinSamples      int
	EnforceCoverage bool
}

// Request is one collection query.
type Request struct {
	Lat           float64
	Lon           float64
	TargetDate    string // YYYY-MM-DD
	TargetHour    int
	WindowDays    int
	BaselineStart int
	BaselineEnd   int
}

// DefaultWindowDays is a defensive fallback applied only when a caller
// invokes the collector directly with WindowDays <= 0. The HTTP layer
// always resolves its own operational default (RiskConfig.DefaultWindow)
// before reaching here, so in practice this constant only guards
// non-HTTP callers and tests that construct a Request by hand.
const DefaultWindowDays = 15

var requiredParams = []string{"T2M", "RH2M", "WS10M", "PRECTOTCORR"}

// Collector gathers SampleCollections by chunking the baseline years and
// calling the reanalysis client once per year.
type Collector struct {
	client      *reanalysis.Client
	precipFuser *precipitation.Fuser
	coverage    CoverageSettings
	logger      *slog.Logger
}

// New builds a Collector. precipFuser may be nil, in which case every
// sample's hourly precipitation falls back to precipDaily_mm/24.
func New(client *reanalysis.Client, precipFuser *precipitation.Fuser, coverage CoverageSettings, logger *slog.Logger) *Collector {
	return &Collector{client: client, precipFuser: precipFuser, coverage: coverage, logger: logger}
}

// Collect runs the C3 algorithm: resolve zone, compute target DOY, fetch
// each baseline year's window (clamped, not wrapped, at the year
// boundary), build samples for fully-populated days, and evaluate
// coverage adequacy.
func (c *Collector) Collect(ctx context.Context, req Request) (model.SampleCollection, error) {
	if req.WindowDays <= 0 {
		req.WindowDays = DefaultWindowDays
	}

	zone, err := timezone.ResolveTZ(req.Lat, req.Lon)
	if err != nil {
		return model.SampleCollection{}, fmt.Errorf("samples: %w", err)
	}

	targetDate, err := timezone.ParseDate(req.TargetDate)
	if err != nil {
		return model.SampleCollection{}, fmt.Errorf("samples: %w", err)
	}
	targetDOY := timezone.DayOfYear(targetDate)

	collection := model.SampleCollection{
		Lat:           req.Lat,
		Lon:           req.Lon,
		TargetDate:    req.TargetDate,
		TargetHour:    req.TargetHour,
		WindowDays:    req.WindowDays,
		BaselineStart: req.BaselineStart,
		BaselineEnd:   req.BaselineEnd,
		Zone:          zone,
	}

	yearsWithData := 0
	yearsAttempted := req.BaselineEnd - req.BaselineStart + 1
	yearsFailed := 0

	for year := req.BaselineStart; year <= req.BaselineEnd; year++ {
		yearSamples, err := c.collectYear(ctx, req, zone, targetDOY, year)
		if err != nil {
			c.logger.Warn("samples: year fetch failed, skipping", "year", year, "error", err)
			yearsFailed++
			continue
		}
		if len(yearSamples) > 0 {
			yearsWithData++
		}
		collection.Samples = append(collection.Samples, yearSamples...)
	}

	if yearsFailed == yearsAttempted {
		return model.SampleCollection{}, fmt.Errorf("samples: all %d baseline years failed", yearsAttempted)
	}

	collection.Coverage = model.CoverageMetrics{
		YearsRequested: yearsAttempted,
		YearsWithData:  yearsWithData,
		TotalSamples:   len(collection.Samples),
		Adequate:       yearsWithData >= c.coverage.MinYears && len(collection.Samples) >= c.coverage.MinSamples,
	}

	if c.coverage.EnforceCoverage && !collection.Coverage.Adequate {
		return model.SampleCollection{}, ErrInsufficientCoverage
	}

	return collection, nil
}

// collectYear computes the clamped DOY window for one year and fetches
// the reanalysis series for it. The window does not wrap at the year
// boundary: late-December neighbours of an early-January target in a
// prior year are never sought.
func (c *Collector) collectYear(ctx context.Context, req Request, zone string, targetDOY, year int) ([]model.WeatherSample, error) {
	yearLen := timezone.YearLength(year)

	startDOY := targetDOY - req.WindowDays
	if startDOY < 1 {
		startDOY = 1
	}
	endDOY := targetDOY + req.WindowDays
	if endDOY > yearLen {
		endDOY = yearLen
	}

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, startDOY-1)
	end := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, endDOY-1)

	series, err := c.client.GetDailySeries(ctx, req.Lat, req.Lon, start, end, requiredParams)
	if err != nil {
		return nil, err
	}

	temp := series["T2M"]
	rh := series["RH2M"]
	wind := series["WS10M"]
	precip := series["PRECTOTCORR"]

	var out []model.WeatherSample

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("20060102")

		tempV, ok := temp[key]
		if !ok || tempV.V == nil {
			continue
		}
		rhV, ok := rh[key]
		if !ok || rhV.V == nil {
			continue
		}
		windV, ok := wind[key]
		if !ok || windV.V == nil {
			continue
		}

		precipDaily := 0.0
		if precipV, ok := precip[key]; ok && precipV.V != nil {
			precipDaily = *precipV.V
		}

		sample, err := buildSample(req.Lat, req.Lon, d, req.TargetHour, zone, *tempV.V, *rhV.V, *windV.V, precipDaily)
		if err != nil {
			c.logger.Warn("samples: skipping day, timezone error", "date", key, "error", err)
			continue
		}

		if c.precipFuser != nil {
			if hourly, ok := c.hourlyPrecipForTarget(ctx, req, d, zone); ok {
				rate := hourly.AvgRateMMPerH
				sample.PrecipHourlyMM = &rate
				sample.PrecipSource = model.PrecipSource(hourly.Source)
			}
		}

		out = append(out, sample)
	}

	return out, nil
}

// hourlyPrecipForTarget fetches the fused hourly precipitation for day
// and picks out the bucket matching the requested target hour.
func (c *Collector) hourlyPrecipForTarget(ctx context.Context, req Request, day time.Time, zone string) (precipitation.HourlyPrecip, bool) {
	hours, err := c.precipFuser.GetHourlyPrecipitation(ctx, req.Lat, req.Lon, day, zone)
	if err != nil || len(hours) == 0 {
		return precipitation.HourlyPrecip{}, false
	}
	for _, h := range hours {
		if h.Hour == req.TargetHour {
			return h, true
		}
	}
	return precipitation.HourlyPrecip{}, false
}

func buildSample(lat, lon float64, day time.Time, targetHour int, zone string, tempC, rh, windMS, precipDaily float64) (model.WeatherSample, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return model.WeatherSample{}, err
	}

	tsLocal := time.Date(day.Year(), day.Month(), day.Day(), targetHour, 0, 0, 0, loc)
	tsUTC := tsLocal.UTC()

	hi := indices.HeatIndex(tempC, rh)
	wc := indices.WindChill(tempC, windMS)
	feelsLike := indices.FeelsLike(tempC, rh, windMS)

	return model.WeatherSample{
		TSUTC:          tsUTC,
		TSLocal:        tsLocal,
		Year:           day.Year(),
		DOY:            timezone.DayOfYear(day),
		Lat:            lat,
		Lon:            lon,
		TempC:          tempC,
		RH:             rh,
		WindMS:         windMS,
		PrecipDailyMM:  precipDaily,
		PrecipSource:   model.PrecipSourceReanalysis,
		HeatIndexC:     hi,
		WindChillC:     wc,
		FeelsLikeC:     feelsLike,
	}, nil
}
