// Package riskapi wires the weather-risk pipeline (C1-C11) into a
// request-scoped service consumed by the HTTP handlers.
package riskapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/skyrisk/weatherrisk-api/internal/cache"
	"github.com/skyrisk/weatherrisk-api/internal/config"
	"github.com/skyrisk/weatherrisk-api/internal/precipitation"
	"github.com/skyrisk/weatherrisk-api/internal/reanalysis"
	"github.com/skyrisk/weatherrisk-api/internal/risk/apierr"
	"github.com/skyrisk/weatherrisk-api/internal/risk/distributions"
	"github.com/skyrisk/weatherrisk-api/internal/risk/export"
	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
	"github.com/skyrisk/weatherrisk-api/internal/risk/probability"
	"github.com/skyrisk/weatherrisk-api/internal/risk/samples"
	"github.com/skyrisk/weatherrisk-api/internal/risk/thresholds"
	"github.com/skyrisk/weatherrisk-api/internal/risk/trends"
)

// assessmentKinds are the five condition kinds reported by riskAssessment.
var assessmentKinds = []model.ConditionKind{
	model.ConditionHot, model.ConditionCold, model.ConditionWindy,
	model.ConditionWet, model.ConditionAny,
}

// Assessment is the riskAssessment operation's result.
type Assessment struct {
	Probabilities    map[model.ConditionKind]model.ProbabilityResult
	Coverage         model.CoverageMetrics
	CoverageReport   samples.CoverageReport
	Thresholds       thresholds.Settings
	Distributions    map[string]model.Distribution
	Trends           map[model.ConditionKind]model.Trend
	CoverageAdequate bool
}

// RequestDefaults carries the operational knobs (spec.md §4.10) consulted
// when a caller omits the corresponding query parameter.
type RequestDefaults struct {
	Hour          int
	WindowDays    int
	BaselineStart int
}

// Service orchestrates C1-C11 for one request.
type Service struct {
	collector  *samples.Collector
	coverage   samples.CoverageSettings
	thresholds thresholds.Settings
	defaults   RequestDefaults
}

// Defaults returns the request defaults this service was configured with.
func (s *Service) Defaults() RequestDefaults {
	return s.defaults
}

// NewService builds a Service from loaded settings, constructing its own
// reanalysis cache and client, which the precipitation fuser and the
// sample collector then share.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	coverage := samples.CoverageSettings{
		MinYears:        cfg.Risk.MinYears,
		MinSamples:      cfg.Risk.MinSamples,
		EnforceCoverage: cfg.Risk.EnforceCoverage,
	}

	reanalysisCache := cache.New(&cache.Config{
		URL:                 cfg.Redis.URL,
		MaxRetries:          cfg.Redis.MaxRetries,
		MinRetryBackoff:     cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff:     cfg.Redis.MaxRetryBackoff,
		DialTimeout:         cfg.Redis.DialTimeout,
		ReadTimeout:         cfg.Redis.ReadTimeout,
		WriteTimeout:        cfg.Redis.WriteTimeout,
		PoolSize:            cfg.Redis.PoolSize,
		MinIdleConns:        cfg.Redis.MinIdleConns,
		MaxConnAge:          cfg.Redis.MaxConnAge,
		PoolTimeout:         cfg.Redis.PoolTimeout,
		IdleTimeout:         cfg.Redis.IdleTimeout,
		IdleCheckFrequency:  cfg.Redis.IdleCheckFrequency,
		KeyPrefix:           "weatherrisk-reanalysis",
		DefaultTTL:          24 * time.Hour,
		EnableFallback:      true,
		GracefulDegradation: true,
	})

	reanalysisClient := reanalysis.New(reanalysis.Config{
		ConnectTimeout: time.Duration(cfg.Risk.ConnectTimeoutS) * time.Second,
		ReadTimeout:    time.Duration(cfg.Risk.ReadTimeoutS) * time.Second,
		Retries:        cfg.Risk.Retries,
		CacheTTL:       24 * time.Hour,
	}, reanalysisCache, logger)

	precipFuser := precipitation.NewFuser(precipitation.NewSyntheticSource(), reanalysisClient, true, true, logger)

	collector := samples.New(reanalysisClient, precipFuser, coverage, logger)

	thresholdSettings := thresholds.Settings{
		HotHI_C:    cfg.Risk.HotHI_C,
		ColdWC_C:   cfg.Risk.ColdWC_C,
		Wind_ms:    cfg.Risk.Wind_ms,
		RainMMPerH: cfg.Risk.RainMMPerH,
	}

	return &Service{
		collector:  collector,
		coverage:   coverage,
		thresholds: thresholdSettings,
		defaults: RequestDefaults{
			Hour:          cfg.Risk.DefaultHour,
			WindowDays:    cfg.Risk.DefaultWindow,
			BaselineStart: cfg.Risk.BaselineStart,
		},
	}
}

// flagger closes over the service's threshold settings.
func (s *Service) flagger() func(model.WeatherSample) model.ConditionFlags {
	return func(sample model.WeatherSample) model.ConditionFlags {
		return thresholds.Flag(sample, s.thresholds)
	}
}

// CollectionRequest is the riskAssessment/export request envelope.
type CollectionRequest struct {
	Lat           float64
	Lon           float64
	TargetDate    string
	TargetHour    int
	WindowDays    int
	BaselineStart int
	BaselineEnd   int
}

// Collect runs the sample collector for the request envelope, mapping
// collector errors onto the risk-assessment error taxonomy.
func (s *Service) Collect(ctx context.Context, req CollectionRequest) (model.SampleCollection, error) {
	collection, err := s.collector.Collect(ctx, samples.Request{
		Lat:           req.Lat,
		Lon:           req.Lon,
		TargetDate:    req.TargetDate,
		TargetHour:    req.TargetHour,
		WindowDays:    req.WindowDays,
		BaselineStart: req.BaselineStart,
		BaselineEnd:   req.BaselineEnd,
	})
	if err != nil {
		if err == samples.ErrInsufficientCoverage {
			return model.SampleCollection{}, apierr.New(apierr.KindInsufficientCoverage, "insufficient historical coverage").WithCause(err)
		}
		return model.SampleCollection{}, apierr.New(apierr.KindUpstreamFailure, "sample collection failed").WithCause(err)
	}
	return collection, nil
}

// Assess computes the full riskAssessment result for a collection
// (lean mode omits Distributions/Trends).
func (s *Service) Assess(collection model.SampleCollection, full bool) (Assessment, error) {
	flagFn := s.flagger()

	probs := make(map[model.ConditionKind]model.ProbabilityResult, len(assessmentKinds))
	for _, kind := range assessmentKinds {
		result, err := probability.Calculate(collection, kind, flagFn, time.Now().UTC())
		if err != nil {
			return Assessment{}, apierr.New(apierr.KindNumericalError, "probability calculation failed").WithCause(err)
		}
		probs[kind] = result
	}

	coverageReport := samples.ValidateCoverage(collection, s.coverage)

	assessment := Assessment{
		Probabilities:    probs,
		Coverage:         collection.Coverage,
		CoverageReport:   coverageReport,
		Thresholds:       s.thresholds,
		CoverageAdequate: collection.Coverage.Adequate,
	}

	if full {
		assessment.Distributions = distributions.BuildAll(collection, s.thresholds)
		assessment.Trends = trends.CalculateAll(collection.Samples, flagFn)
	}

	return assessment, nil
}

// CoverageReport builds the supplemented coverage diagnostic for a
// collection.
func (s *Service) CoverageReport(collection model.SampleCollection) samples.CoverageReport {
	return samples.ValidateCoverage(collection, s.coverage)
}

// ExportRows builds export rows for a collection.
func (s *Service) ExportRows(collection model.SampleCollection) []export.Row {
	return export.BuildRows(collection, s.thresholds)
}
