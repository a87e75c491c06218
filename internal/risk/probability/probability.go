// Package probability counts flagged samples per condition kind and
// computes Clopper-Pearson exact binomial confidence intervals via the
// regularized incomplete beta function.
package probability

import (
	"errors"
	"time"

	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
)

// ErrEmptySamples is returned when Calculate is given a collection with
// zero samples.
var ErrEmptySamples = errors.New("probability: no samples")

// ErrInvalidConditionKind is returned for a condition kind outside the
// six recognized kinds.
var ErrInvalidConditionKind = errors.New("probability: invalid condition kind")

// Level is the confidence level this package always reports at.
const Level = 0.95

func matches(flags model.ConditionFlags, kind model.ConditionKind) (bool, error) {
	switch kind {
	case model.ConditionHot:
		return flags.VeryHot, nil
	case model.ConditionCold:
		return flags.VeryCold, nil
	case model.ConditionWindy:
		return flags.VeryWindy, nil
	case model.ConditionWet:
		return flags.VeryWet, nil
	case model.ConditionAny:
		return flags.AnyFlagged(), nil
	case model.ConditionMultiple:
		return flags.CountFlagged() >= 2, nil
	default:
		return false, ErrInvalidConditionKind
	}
}

// Count returns (k, n) for a condition kind over a parallel slice of
// samples and their precomputed flags.
func Count(flagsBySample []model.ConditionFlags, kind model.ConditionKind) (k, n int, err error) {
	n = len(flagsBySample)
	for _, f := range flagsBySample {
		ok, err := matches(f, kind)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			k++
		}
	}
	return k, n, nil
}

// clopperPearson computes the exact binomial CI at level 1-alpha (default
// alpha=0.05) per spec: endpoints handled specially at k=0 and k=n.
func clopperPearson(k, n int, alpha float64) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	if k == 0 {
		return 0, invBetaCDF(1-alpha/2, 1, float64(n))
	}
	if k == n {
		return invBetaCDF(alpha/2, float64(n), 1), 1
	}
	lo = invBetaCDF(alpha/2, float64(k), float64(n-k+1))
	hi = invBetaCDF(1-alpha/2, float64(k+1), float64(n-k))
	return lo, hi
}

// Calculate computes the ProbabilityResult for one condition kind over a
// SampleCollection. It first derives flags for every sample via flagFn.
func Calculate(collection model.SampleCollection, kind model.ConditionKind, flagFn func(model.WeatherSample) model.ConditionFlags, now time.Time) (model.ProbabilityResult, error) {
	if len(collection.Samples) == 0 {
		return model.ProbabilityResult{}, ErrEmptySamples
	}

	flags := make([]model.ConditionFlags, len(collection.Samples))
	for i, s := range collection.Samples {
		flags[i] = flagFn(s)
	}

	k, n, err := Count(flags, kind)
	if err != nil {
		return model.ProbabilityResult{}, err
	}

	p := 0.0
	if n > 0 {
		p = float64(k) / float64(n)
	}

	ciLow, ciHigh := clopperPearson(k, n, 1-Level)

	return model.ProbabilityResult{
		P:             p,
		CILow:         ciLow,
		CIHigh:        ciHigh,
		Level:         Level,
		N:             n,
		K:             k,
		CoverageYears: collection.CoverageYears(),
		ConditionKind: kind,
		AnalysisAt:    now,
	}, nil
}
