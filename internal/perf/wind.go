package perf

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// TableCredit interpolates the wind credit table at windSpeed (kt) and
// weight (hundreds of kg). Both inputs are clamped to the sampled span and
// clamped reports whether either had to move.
func (w *WindFamily) TableCredit(windSpeed, weight float64) (creditKg float64, clamped bool) {
	if w == nil || len(w.curves) == 0 {
		return 0, true
	}

	levels := w.curves
	lo, hi := levels[0].WindSpeed, levels[len(levels)-1].WindSpeed
	switch {
	case math.IsNaN(windSpeed), windSpeed < lo:
		windSpeed, clamped = lo, true
	case windSpeed > hi:
		windSpeed, clamped = hi, true
	}

	for i, c := range levels {
		if c.WindSpeed == windSpeed {
			v, cw := bandCredit(c.Bands, weight)
			return v, clamped || cw
		}
		if i+1 < len(levels) && windSpeed < levels[i+1].WindSpeed {
			next := levels[i+1]
			vl, cl := bandCredit(c.Bands, weight)
			vu, cu := bandCredit(next.Bands, weight)
			t := (windSpeed - c.WindSpeed) / (next.WindSpeed - c.WindSpeed)
			return lerp(vl, vu, t), clamped || cl || cu
		}
	}
	v, cw := bandCredit(levels[len(levels)-1].Bands, weight)
	return v, clamped || cw
}

// bandCredit interpolates credit across weight bands sorted by weight.
func bandCredit(bands []CreditBand, weight float64) (float64, bool) {
	first, last := bands[0], bands[len(bands)-1]
	switch {
	case math.IsNaN(weight), weight < first.Weight:
		return first.CreditKg, true
	case weight > last.Weight:
		return last.CreditKg, true
	}

	xs := make([]float64, len(bands))
	ys := make([]float64, len(bands))
	for i, b := range bands {
		xs[i] = b.Weight
		ys[i] = b.CreditKg
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return first.CreditKg, false
	}
	return pl.Predict(weight), false
}
