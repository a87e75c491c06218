// Package thresholds flags weather samples against configurable adverse
// condition thresholds, preferring a composite index over the raw sensor
// reading wherever the index's validity domain applies.
package thresholds

import "github.com/skyrisk/weatherrisk-api/internal/risk/model"

// Settings holds the four flagging thresholds consulted by Flag.
type Settings struct {
	HotHI_C      float64
	ColdWC_C     float64
	Wind_ms      float64
	RainMMPerH   float64
}

// Flag evaluates a sample against the settings and returns its flags.
func Flag(s model.WeatherSample, settings Settings) model.ConditionFlags {
	veryHot := s.TempC >= settings.HotHI_C
	if s.HeatIndexC != nil {
		veryHot = *s.HeatIndexC >= settings.HotHI_C
	}

	veryCold := s.TempC <= settings.ColdWC_C
	if s.WindChillC != nil {
		veryCold = *s.WindChillC <= settings.ColdWC_C
	}

	veryWindy := s.WindMS >= settings.Wind_ms

	veryWet := s.HourlyPrecipRate() >= settings.RainMMPerH

	return model.ConditionFlags{
		VeryHot:   veryHot,
		VeryCold:  veryCold,
		VeryWindy: veryWindy,
		VeryWet:   veryWet,
	}
}
