package perf

import "math"

// creditSegment is one linear piece of the base wind credit table: for wind
// speeds in (from, to] the credit is base + rate*(wind-from).
type creditSegment struct {
	from, to float64 // kt
	base     float64 // kg at from
	rate     float64 // kg per kt
}

// creditTable is the fixed four-segment base credit model. It is a
// placeholder approximation of the reference chart, not derived from it.
var creditTable = [...]creditSegment{
	{from: 0, to: 5, base: 0, rate: 10},
	{from: 5, to: 10, base: 50, rate: 15},
	{from: 10, to: 20, base: 125, rate: 12},
	{from: 20, to: 50, base: 245, rate: 5},
}

// MaxCreditWind is the wind speed above which the credit stops growing.
const MaxCreditWind = 50.0

// BaseCredit returns the unscaled credit in kg for windSpeed knots.
func BaseCredit(windSpeed float64) float64 {
	if math.IsNaN(windSpeed) || windSpeed <= 0 {
		return 0
	}
	windSpeed = math.Min(windSpeed, MaxCreditWind)
	for _, s := range creditTable {
		if windSpeed <= s.to {
			return s.base + s.rate*(windSpeed-s.from)
		}
	}
	last := creditTable[len(creditTable)-1]
	return last.base + last.rate*(last.to-last.from)
}

// CreditFor returns the wind credit in kg for a base gross weight in kg.
//
// The base credit is scaled by benefitPercent, clamped to [0, 100], and
// nothing else: baseWeightKg does not change the result. A NaN benefit earns
// no credit.
func CreditFor(windSpeed, baseWeightKg, benefitPercent float64) float64 {
	if math.IsNaN(benefitPercent) {
		return 0
	}
	return BaseCredit(windSpeed) * (clamp(benefitPercent, 0, 100) / 100)
}
