package probability

import "math"

// lanczosCoefficients are the Lanczos series coefficients used by logGamma
// for x >= 0.5 (Lanczos approximation, g=7, n=9).
var lanczosCoefficients = []float64{
	0.99999999999980993,
	676.5203681218851,
	-1259.1392167224028,
	771.32342877765313,
	-176.61502916214059,
	12.507343278686905,
	-0.13857109526572012,
	9.9843695780195716e-6,
	1.5056327351493116e-7,
}

// logGamma computes log(Gamma(x)) via the Lanczos approximation for x >=
// 0.5, and the reflection formula log Gamma(x) = log(pi) - log(sin(pi*x)) -
// log Gamma(1-x) otherwise.
func logGamma(x float64) float64 {
	if x < 0.5 {
		return math.Log(math.Pi/math.Sin(math.Pi*x)) - logGamma(1-x)
	}

	x -= 1
	a := lanczosCoefficients[0]
	t := x + 7.5
	for i := 1; i < len(lanczosCoefficients); i++ {
		a += lanczosCoefficients[i] / (x + float64(i))
	}

	return 0.5*math.Log(2*math.Pi) + (x+0.5)*math.Log(t) - t + math.Log(a)
}

// logBeta computes log(B(a,b)) = logGamma(a) + logGamma(b) - logGamma(a+b).
func logBeta(a, b float64) float64 {
	return logGamma(a) + logGamma(b) - logGamma(a+b)
}
