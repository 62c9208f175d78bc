package perf

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// AltitudeInterpolate returns the weight of points at altitude.
//
// Points are sorted by altitude first, so callers may pass them in chart
// order. Altitudes outside the sampled span return the boundary weight and
// clamped=true; there is no extrapolation.
func AltitudeInterpolate(points []Point, altitude float64) (weight float64, clamped bool) {
	switch len(points) {
	case 0:
		return 0, true
	case 1:
		return points[0].Weight, altitude != points[0].Altitude
	}

	sorted := clonePoints(points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Altitude < sorted[j].Altitude })

	first, last := sorted[0], sorted[len(sorted)-1]
	switch {
	case math.IsNaN(altitude):
		return first.Weight, true
	case altitude <= first.Altitude:
		return first.Weight, altitude < first.Altitude
	case altitude >= last.Altitude:
		return last.Weight, altitude > last.Altitude
	}

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		xs[i] = p.Altitude
		ys[i] = p.Weight
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		// Repeated altitudes only reach here through hand-built curves that
		// bypassed LoadCurveFamily.
		return scanSegments(sorted, altitude), false
	}
	return pl.Predict(altitude), false
}

// scanSegments interpolates inside the first segment that brackets altitude.
// sorted must be ordered by altitude.
func scanSegments(sorted []Point, altitude float64) float64 {
	for i := 0; i+1 < len(sorted); i++ {
		a, b := sorted[i], sorted[i+1]
		if altitude < a.Altitude || altitude > b.Altitude {
			continue
		}
		if b.Altitude == a.Altitude {
			return a.Weight
		}
		t := (altitude - a.Altitude) / (b.Altitude - a.Altitude)
		return lerp(a.Weight, b.Weight, t)
	}
	return sorted[len(sorted)-1].Weight
}

// WeightAt returns the maximum gross weight at the given OAT (°C) and
// pressure altitude (thousands of ft).
//
// The temperature is clamped into the sampled range. An exact temperature
// match uses that single curve; otherwise the two bracketing curves are
// interpolated along altitude and then blended linearly by temperature.
func (f *CurveFamily) WeightAt(oat, altitude float64) QueryResult {
	curves := f.sortedCurves()
	if len(curves) == 0 {
		return QueryResult{Weight: math.NaN(), AltitudeClamped: true}
	}

	var res QueryResult
	oat, res.ClampedLow, res.ClampedHigh = clampOAT(curves, oat)

	lower, upper, exact := bracket(curves, oat)
	if exact || upper.OAT == lower.OAT {
		w, clamped := AltitudeInterpolate(lower.Points, altitude)
		res.Weight = w
		res.SourceOATs = []float64{lower.OAT}
		res.AltitudeClamped = clamped
		return res
	}

	wl, cl := AltitudeInterpolate(lower.Points, altitude)
	wu, cu := AltitudeInterpolate(upper.Points, altitude)
	ratio := (oat - lower.OAT) / (upper.OAT - lower.OAT)

	res.Weight = lerp(wl, wu, ratio)
	res.SourceOATs = []float64{lower.OAT, upper.OAT}
	res.AltitudeClamped = cl || cu
	return res
}

// CurveForTemperature returns the curve for oat, synthesizing one from the
// bracketing curves when no sampled curve matches.
//
// Synthetic points pair the i-th point of each bracketing curve, so the
// result only covers the common prefix min(len(lower), len(upper)). Points
// keep the order they have in the dataset.
func (f *CurveFamily) CurveForTemperature(oat float64) OATCurve {
	curves := f.sortedCurves()
	if len(curves) == 0 {
		return OATCurve{OAT: oat}
	}

	oat, _, _ = clampOAT(curves, oat)
	lower, upper, exact := bracket(curves, oat)
	if exact || upper.OAT == lower.OAT {
		return cloneCurve(lower)
	}

	ratio := (oat - lower.OAT) / (upper.OAT - lower.OAT)
	n := min(len(lower.Points), len(upper.Points))
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		lp, up := lower.Points[i], upper.Points[i]
		pts[i] = Point{
			Altitude: lerp(lp.Altitude, up.Altitude, ratio),
			Weight:   lerp(lp.Weight, up.Weight, ratio),
		}
	}
	return OATCurve{OAT: oat, Points: pts}
}

// sortedCurves returns the curves ordered by OAT. Families built by
// LoadCurveFamily are already sorted and are returned without copying.
func (f *CurveFamily) sortedCurves() []OATCurve {
	if f == nil {
		return nil
	}
	less := func(i, j int) bool { return f.curves[i].OAT < f.curves[j].OAT }
	if sort.SliceIsSorted(f.curves, less) {
		return f.curves
	}
	out := make([]OATCurve, len(f.curves))
	copy(out, f.curves)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OAT < out[j].OAT })
	return out
}

func clampOAT(curves []OATCurve, oat float64) (v float64, low, high bool) {
	lo, hi := curves[0].OAT, curves[len(curves)-1].OAT
	switch {
	case math.IsNaN(oat), oat < lo:
		return lo, true, false
	case oat > hi:
		return hi, false, true
	}
	return oat, false, false
}

// bracket finds the curves around oat with a linear scan. oat must already
// be inside the sampled range.
func bracket(curves []OATCurve, oat float64) (lower, upper OATCurve, exact bool) {
	for _, c := range curves {
		if c.OAT == oat {
			return c, c, true
		}
	}
	for i := 0; i+1 < len(curves); i++ {
		if curves[i].OAT <= oat && oat <= curves[i+1].OAT {
			return curves[i], curves[i+1], false
		}
	}
	last := curves[len(curves)-1]
	return last, last, true
}
