// Package perf interpolates helicopter HOGE performance data.
//
// A CurveFamily is a set of sampled weight-versus-altitude curves, one per
// outside air temperature. Queries blend the two curves bracketing the
// requested temperature and interpolate along altitude inside each of them.
// A WindFamily holds the wind-speed credit table drawn on the second chart
// panel. Both families are immutable once loaded and safe for concurrent use.
//
// Dataset units are fixed: °C, thousands of feet, hundreds of kilograms and
// knots. Conversions for display live in units.go.
package perf

// Point is one sampled chart point.
type Point struct {
	Altitude float64 `json:"altitude"` // thousands of ft
	Weight   float64 `json:"weight"`   // hundreds of kg
}

// OATCurve is the maximum gross weight curve for one outside air temperature.
type OATCurve struct {
	OAT    float64 `json:"oat"`
	Points []Point `json:"points"`
}

// CreditBand is the credit for one gross weight at a given wind speed.
type CreditBand struct {
	Weight   float64 `json:"weight"`    // hundreds of kg
	CreditKg float64 `json:"credit_kg"` // kg
}

// WindCreditCurve holds the credits for one wind speed level.
type WindCreditCurve struct {
	WindSpeed float64      `json:"wind_speed"` // kt
	Bands     []CreditBand `json:"bands"`
}

// Dataset is the external reference dataset contract.
type Dataset struct {
	Name     string            `json:"name"`
	Aircraft string            `json:"aircraft,omitempty"`
	Curves   []OATCurve        `json:"curves"`
	Wind     []WindCreditCurve `json:"wind"`
}

// QueryResult is returned by every weight interpolation.
type QueryResult struct {
	Weight float64 `json:"weight"` // hundreds of kg

	// SourceOATs is [lower, upper] when two curves were blended, or a single
	// element when the temperature matched a curve exactly.
	SourceOATs []float64 `json:"source_oats"`

	ClampedLow  bool `json:"clamped_low"`
	ClampedHigh bool `json:"clamped_high"`

	// AltitudeClamped is set when the altitude was outside the sampled span of
	// any curve used for the answer.
	AltitudeClamped bool `json:"altitude_clamped"`
}

// Exact reports whether the result came from a single sampled curve.
func (r QueryResult) Exact() bool {
	return len(r.SourceOATs) == 1
}

// OutOfEnvelope reports whether any input had to be clamped.
func (r QueryResult) OutOfEnvelope() bool {
	return r.ClampedLow || r.ClampedHigh || r.AltitudeClamped
}

// ProbeAxis selects which coordinate an intersection probe is fixed on.
type ProbeAxis int

const (
	// ProbeAltitude probes with a horizontal line at a fixed altitude and
	// returns weights.
	ProbeAltitude ProbeAxis = iota
	// ProbeWeight probes with a vertical line at a fixed weight and returns
	// altitudes.
	ProbeWeight
)

func (a ProbeAxis) String() string {
	switch a {
	case ProbeAltitude:
		return "altitude"
	case ProbeWeight:
		return "weight"
	default:
		return "unknown"
	}
}

func clonePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

func cloneCurve(c OATCurve) OATCurve {
	return OATCurve{OAT: c.OAT, Points: clonePoints(c.Points)}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
