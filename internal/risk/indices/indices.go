// Package indices computes composite apparent-temperature indices: heat
// index, wind chill and feels-like. Each is defined only within its NWS
// validity domain; outside that domain the index is missing (nil), never
// an approximated or clamped number.
package indices

import "math"

func celsiusToFahrenheit(c float64) float64 { return c*9.0/5.0 + 32.0 }
func fahrenheitToCelsius(f float64) float64 { return (f - 32.0) * 5.0 / 9.0 }
func msToMPH(ms float64) float64            { return ms * 2.236936 }

// HeatIndex returns the NWS Rothfusz heat index in Celsius, or nil when
// tempC < 26.7 or rh < 40 (outside the index's validity domain).
func HeatIndex(tempC, rh float64) *float64 {
	if tempC < 26.7 || rh < 40 {
		return nil
	}

	tempF := celsiusToFahrenheit(tempC)

	simple := 0.5 * (tempF + 61.0 + (tempF-68.0)*1.2 + rh*0.094)

	hiF := simple
	if (simple+tempF)/2.0 >= 80.0 {
		hiF = -42.379 +
			2.04901523*tempF +
			10.14333127*rh -
			0.22475541*tempF*rh -
			0.00683783*tempF*tempF -
			0.05481717*rh*rh +
			0.00122874*tempF*tempF*rh +
			0.00085282*tempF*rh*rh -
			0.00000199*tempF*tempF*rh*rh

		if rh < 13 && tempF >= 80 && tempF <= 112 {
			adjustment := ((13 - rh) / 4) * math.Sqrt((17-math.Abs(tempF-95))/17)
			hiF -= adjustment
		} else if rh > 85 && tempF >= 80 && tempF <= 87 {
			adjustment := ((rh - 85) / 10) * ((87 - tempF) / 5)
			hiF += adjustment
		}
	}

	result := fahrenheitToCelsius(hiF)
	return &result
}

// WindChill returns the NWS 2001 wind chill in Celsius, or nil when
// tempC > 10 or windMS < 1.34 (outside the index's validity domain).
func WindChill(tempC, windMS float64) *float64 {
	if tempC > 10 || windMS < 1.34 {
		return nil
	}

	tempF := celsiusToFahrenheit(tempC)
	windMPH := msToMPH(windMS)

	wcF := 35.74 + 0.6215*tempF - 35.75*math.Pow(windMPH, 0.16) +
		0.4275*tempF*math.Pow(windMPH, 0.16)

	result := fahrenheitToCelsius(wcF)
	return &result
}

// FeelsLike returns heat index when it applies, else wind chill when it
// applies, else the raw temperature. The two indices have disjoint
// domains, so at most one ever applies.
func FeelsLike(tempC, rh, windMS float64) float64 {
	if hi := HeatIndex(tempC, rh); hi != nil {
		return *hi
	}
	if wc := WindChill(tempC, windMS); wc != nil {
		return *wc
	}
	return tempC
}
