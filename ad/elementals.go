package ad

// Closed-form helpers backing Graph's probability-density primitives.

import "math"

// LogGamma exports logGamma for packages outside ad (dist's Gamma,
// StudentT and Dirichlet log-densities) that need the same
// approximation without duplicating it.
func LogGamma(x float64) float64 { return logGamma(x) }

// logGamma approximates log Gamma(x) for x > 0: Stirling's series above
// 12, a Lanczos-style rational-polynomial formula on [1, 12], and the
// recurrence log Gamma(x) = log Gamma(x+1) - log x below 1.
func logGamma(x float64) float64 {
	switch {
	case x < 1:
		return logGamma(x+1) - math.Log(x)
	case x > 12:
		return stirlingLogGamma(x)
	default:
		return lanczosLogGamma(x)
	}
}

// stirlingLogGamma is the asymptotic Stirling series, accurate for
// x > 12: (x-1/2) log x - x + 1/2 log(2 pi) + 1/(12x) - 1/(360x^3).
func stirlingLogGamma(x float64) float64 {
	inv := 1 / x
	inv2 := inv * inv
	series := inv/12 - inv*inv2/360
	return (x-0.5)*math.Log(x) - x + 0.5*math.Log(2*math.Pi) + series
}

// lanczosLogGamma is the standard g=7, 9-term Lanczos approximation,
// used on [1, 12].
var lanczosCoefficients = [9]float64{
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

func lanczosLogGamma(x float64) float64 {
	const g = 7.0
	y := x - 1
	a := lanczosCoefficients[0]
	t := y + g + 0.5
	for i := 1; i < len(lanczosCoefficients); i++ {
		a += lanczosCoefficients[i] / (y + float64(i))
	}
	return 0.5*math.Log(2*math.Pi) + (y+0.5)*math.Log(t) - t + math.Log(a)
}

// Digamma exports digamma for infer's gamma/beta variational entropy
// formulas.
func Digamma(x float64) float64 { return digamma(x) }

// digamma approximates the derivative of logGamma, psi(x) = d/dx log
// Gamma(x), by shifting x above 6 with the recurrence
// psi(x) = psi(x+1) - 1/x and then applying the standard asymptotic
// series.
func digamma(x float64) float64 {
	shift := 0.0
	for x < 6 {
		shift -= 1 / x
		x++
	}
	inv := 1 / x
	inv2 := inv * inv
	series := math.Log(x) - 0.5*inv - inv2/12 + inv2*inv2/120 - inv2*inv2*inv2/252
	return shift + series
}
