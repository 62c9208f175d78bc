package perf

import "math"

// Intersect returns where curve crosses a probe line.
//
// With ProbeAltitude the probe is the horizontal line altitude=probe and the
// result holds weights; with ProbeWeight it is the vertical line
// weight=probe and the result holds altitudes. Consecutive point pairs are
// scanned in stored order and every segment whose endpoints enclose the
// probe (inclusive) contributes one value, so a crossing exactly on a shared
// vertex is reported by both segments. No crossing, or a NaN probe, yields
// an empty result.
func Intersect(curve OATCurve, probe float64, axis ProbeAxis) []float64 {
	if math.IsNaN(probe) {
		return nil
	}
	fixed, free := func(p Point) float64 { return p.Altitude }, func(p Point) float64 { return p.Weight }
	if axis == ProbeWeight {
		fixed, free = free, fixed
	}

	var out []float64
	for i := 0; i+1 < len(curve.Points); i++ {
		a, b := curve.Points[i], curve.Points[i+1]
		av, bv := fixed(a), fixed(b)
		if probe < min(av, bv) || probe > max(av, bv) {
			continue
		}
		if av == bv {
			out = append(out, free(a))
			continue
		}
		t := (probe - av) / (bv - av)
		out = append(out, lerp(free(a), free(b), t))
	}
	return out
}
