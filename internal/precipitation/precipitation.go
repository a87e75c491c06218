// Package precipitation fuses a half-hourly precipitation source with the
// reanalysis daily precipitation total, selecting the higher-quality
// source per request and falling back when the primary is unavailable.
package precipitation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/skyrisk/weatherrisk-api/internal/reanalysis"
)

// HalfHourlyPoint is one raw observation from the half-hourly upstream,
// contract-only per the core: {timestampUTC, mmPerHr, quality in [0,100]}.
type HalfHourlyPoint struct {
	TimestampUTC time.Time
	MMPerHr      float64
	Quality      float64
}

// HalfHourlySource is satisfied by any half-hourly precipitation
// upstream; the core treats its implementation as an opaque black box.
type HalfHourlySource interface {
	FetchDay(ctx context.Context, lat, lon float64, utcDay time.Time) ([]HalfHourlyPoint, error)
}

// HourlyPrecip is one local-hour aggregate.
type HourlyPrecip struct {
	Hour          int
	TotalMM       float64
	AvgRateMMPerH float64
	Points        int
	Quality       float64
	Source        string
}

// Fuser implements the fusion protocol: half-hourly primary, reanalysis
// fallback, empty when both are disabled or fail.
type Fuser struct {
	halfHourly       HalfHourlySource
	reanalysisClient *reanalysis.Client
	halfHourlyOn     bool
	fallbackOn       bool
	logger           *slog.Logger
}

// NewFuser builds a Fuser. Either source may be nil/disabled.
func NewFuser(halfHourly HalfHourlySource, reanalysisClient *reanalysis.Client, halfHourlyOn, fallbackOn bool, logger *slog.Logger) *Fuser {
	return &Fuser{
		halfHourly:       halfHourly,
		reanalysisClient: reanalysisClient,
		halfHourlyOn:     halfHourlyOn,
		fallbackOn:       fallbackOn,
		logger:           logger,
	}
}

// GetHourlyPrecipitation returns the fused hourly precipitation for one
// local civil date in zone, following the three-step fusion protocol.
func (f *Fuser) GetHourlyPrecipitation(ctx context.Context, lat, lon float64, date time.Time, zone string) ([]HourlyPrecip, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("precipitation: coordinates out of range")
	}

	if f.halfHourlyOn && f.halfHourly != nil {
		points, err := f.halfHourly.FetchDay(ctx, lat, lon, date.UTC())
		if err == nil && len(points) > 0 {
			loc, locErr := loadLocationOrUTC(zone)
			_ = locErr
			return aggregateByLocalHour(points, loc), nil
		}
		if err != nil {
			f.logger.Warn("half-hourly precipitation source failed, falling back", "error", err)
		}
	}

	if f.fallbackOn && f.reanalysisClient != nil {
		return f.fallbackFromReanalysis(ctx, lat, lon, date)
	}

	return nil, nil
}

func (f *Fuser) fallbackFromReanalysis(ctx context.Context, lat, lon float64, date time.Time) ([]HourlyPrecip, error) {
	series, err := f.reanalysisClient.GetDailySeries(ctx, lat, lon, date, date, []string{"PRECTOTCORR"})
	if err != nil {
		return nil, fmt.Errorf("precipitation: reanalysis fallback failed: %w", err)
	}

	dayKey := date.Format("20060102")
	precip, ok := series["PRECTOTCORR"]
	if !ok {
		return nil, nil
	}
	value, ok := precip[dayKey]
	if !ok || value.V == nil {
		return nil, nil
	}

	daily := *value.V
	hourly := daily / 24.0

	out := make([]HourlyPrecip, 24)
	for h := 0; h < 24; h++ {
		out[h] = HourlyPrecip{
			Hour:          h,
			TotalMM:       hourly,
			AvgRateMMPerH: hourly,
			Points:        1,
			Quality:       0.4,
			Source:        "half-hourly-fallback",
		}
	}
	return out, nil
}

func loadLocationOrUTC(zone string) (*time.Location, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// aggregateByLocalHour reprojects half-hour points into loc and sums
// contributions per local hour; each half-hour bucket contributes
// rate*0.5h, and hour quality is the mean of contributing qualities.
func aggregateByLocalHour(points []HalfHourlyPoint, loc *time.Location) []HourlyPrecip {
	totals := map[int]float64{}
	qualitySum := map[int]float64{}
	counts := map[int]int{}

	for _, p := range points {
		local := p.TimestampUTC.In(loc)
		hour := local.Hour()
		totals[hour] += p.MMPerHr * 0.5
		qualitySum[hour] += p.Quality
		counts[hour]++
	}

	out := make([]HourlyPrecip, 0, len(totals))
	for hour := 0; hour < 24; hour++ {
		n, ok := counts[hour]
		if !ok {
			continue
		}
		total := totals[hour]
		out = append(out, HourlyPrecip{
			Hour:          hour,
			TotalMM:       total,
			AvgRateMMPerH: total / 1.0,
			Points:        n,
			Quality:       clampQuality(qualitySum[hour] / float64(n) / 100.0),
			Source:        "half-hourly",
		})
	}
	return out
}

// clampQuality keeps a quality score within [0,1].
func clampQuality(q float64) float64 {
	return math.Max(0, math.Min(1, q))
}
