package distributions

import (
	"github.com/skyrisk/weatherrisk-api/internal/risk/model"
	"github.com/skyrisk/weatherrisk-api/internal/risk/thresholds"
)

// BuildAll computes the six parameter distributions spec'd for a
// SampleCollection: temperature, relative humidity, wind, precipitation
// rate, heat index and wind chill (the latter two filtered to samples
// where the index is defined).
func BuildAll(collection model.SampleCollection, settings thresholds.Settings) map[string]model.Distribution {
	samples := collection.Samples

	temp := make([]float64, len(samples))
	rh := make([]float64, len(samples))
	wind := make([]float64, len(samples))
	precip := make([]float64, len(samples))
	var heatIndex, windChill []float64

	for i, s := range samples {
		temp[i] = s.TempC
		rh[i] = s.RH
		wind[i] = s.WindMS
		precip[i] = s.HourlyPrecipRate()
		if s.HeatIndexC != nil {
			heatIndex = append(heatIndex, *s.HeatIndexC)
		}
		if s.WindChillC != nil {
			windChill = append(windChill, *s.WindChillC)
		}
	}

	hotThreshold := settings.HotHI_C
	coldThreshold := settings.ColdWC_C
	windThreshold := settings.Wind_ms
	rainThreshold := settings.RainMMPerH

	return map[string]model.Distribution{
		"temperature":    Create("temperature", "°C", temp, &hotThreshold),
		"relativeHumidity": Create("relativeHumidity", "%", rh, nil),
		"wind":           Create("wind", "m/s", wind, &windThreshold),
		"precipitation":  Create("precipitation", "mm/h", precip, &rainThreshold),
		"heatIndex":      Create("heatIndex", "°C", heatIndex, &hotThreshold),
		"windChill":      Create("windChill", "°C", windChill, &coldThreshold),
	}
}
