package perf

import (
	"fmt"
	"strings"
)

// Literal boundary multipliers of the dataset contract.
const (
	FeetPerThousand = 1000.0  // ft per chart altitude unit
	KgPerHundred    = 100.0   // kg per chart weight unit
	LbPerKg         = 2.20462 // lb per kg
)

// FeetToChart converts feet to the chart's thousands of feet.
func FeetToChart(ft float64) float64 {
	return ft / FeetPerThousand
}

// ChartToKg converts the chart's hundreds of kg to kg.
func ChartToKg(w float64) float64 {
	return w * KgPerHundred
}

// KgToChart converts kg to the chart's hundreds of kg.
func KgToChart(kg float64) float64 {
	return kg / KgPerHundred
}

// DisplayUnit is the weight unit shown to the user.
type DisplayUnit string

const (
	UnitKg DisplayUnit = "kg"
	UnitLb DisplayUnit = "lb"
)

// ParseDisplayUnit accepts "kg" or "lb", case-insensitively. An empty string
// means kg.
func ParseDisplayUnit(s string) (DisplayUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kg":
		return UnitKg, nil
	case "lb", "lbs":
		return UnitLb, nil
	default:
		return "", fmt.Errorf("unknown weight unit %q", s)
	}
}

// FromKg converts kg to u.
func (u DisplayUnit) FromKg(kg float64) float64 {
	if u == UnitLb {
		return kg * LbPerKg
	}
	return kg
}

// FromChart converts hundreds of kg to u.
func (u DisplayUnit) FromChart(w float64) float64 {
	return u.FromKg(ChartToKg(w))
}
