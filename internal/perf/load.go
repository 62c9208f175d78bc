package perf

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/multierr"
)

// ErrInvalidDataset wraps every configuration error found while loading.
var ErrInvalidDataset = errors.New("invalid dataset")

// minPoints is the fewest points a curve may carry.
const minPoints = 2

// CurveFamily is an immutable set of OAT curves sorted by ascending OAT.
// Build it with LoadCurveFamily.
type CurveFamily struct {
	curves []OATCurve
}

// WindFamily is an immutable set of wind credit curves sorted by ascending
// wind speed. Build it with LoadWindFamily.
type WindFamily struct {
	curves []WindCreditCurve
}

// LoadCurveFamily validates curves and returns them as an immutable family.
// Every defect is reported in the returned error, not just the first one.
func LoadCurveFamily(curves []OATCurve) (*CurveFamily, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("%w: curve family is empty", ErrInvalidDataset)
	}

	var err error
	out := make([]OATCurve, len(curves))
	for i, c := range curves {
		out[i] = cloneCurve(c)
		err = multierr.Append(err, validateCurve(c))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].OAT < out[j].OAT })

	// Every curve has at least minPoints points, so any two adjacent curves
	// share a common prefix long enough for CurveForTemperature.
	for i := 1; i < len(out); i++ {
		if out[i-1].OAT == out[i].OAT {
			err = multierr.Append(err, fmt.Errorf("%w: duplicate curve for OAT %g", ErrInvalidDataset, out[i].OAT))
		}
	}

	if err != nil {
		return nil, err
	}
	return &CurveFamily{curves: out}, nil
}

func validateCurve(c OATCurve) error {
	var err error
	if !finite(c.OAT) {
		err = multierr.Append(err, fmt.Errorf("%w: curve OAT is not finite", ErrInvalidDataset))
	}
	if len(c.Points) < minPoints {
		return multierr.Append(err, fmt.Errorf("%w: curve for OAT %g has %d points, need at least %d", ErrInvalidDataset, c.OAT, len(c.Points), minPoints))
	}

	seen := make(map[float64]bool, len(c.Points))
	for i, p := range c.Points {
		if !finite(p.Altitude) || !finite(p.Weight) {
			err = multierr.Append(err, fmt.Errorf("%w: curve for OAT %g point %d is not finite", ErrInvalidDataset, c.OAT, i))
			continue
		}
		if seen[p.Altitude] {
			err = multierr.Append(err, fmt.Errorf("%w: curve for OAT %g repeats altitude %g", ErrInvalidDataset, c.OAT, p.Altitude))
		}
		seen[p.Altitude] = true
	}
	return err
}

// LoadWindFamily validates wind credit curves and returns an immutable family.
func LoadWindFamily(curves []WindCreditCurve) (*WindFamily, error) {
	if len(curves) < minPoints {
		return nil, fmt.Errorf("%w: wind family needs at least %d levels, got %d", ErrInvalidDataset, minPoints, len(curves))
	}

	var err error
	out := make([]WindCreditCurve, len(curves))
	for i, c := range curves {
		bands := make([]CreditBand, len(c.Bands))
		copy(bands, c.Bands)
		sort.SliceStable(bands, func(a, b int) bool { return bands[a].Weight < bands[b].Weight })
		out[i] = WindCreditCurve{WindSpeed: c.WindSpeed, Bands: bands}

		if !finite(c.WindSpeed) || c.WindSpeed < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: wind level %d has invalid speed %g", ErrInvalidDataset, i, c.WindSpeed))
		}
		if len(bands) < minPoints {
			err = multierr.Append(err, fmt.Errorf("%w: wind level %g kt has %d bands, need at least %d", ErrInvalidDataset, c.WindSpeed, len(bands), minPoints))
			continue
		}
		for j := 1; j < len(bands); j++ {
			if bands[j].Weight == bands[j-1].Weight {
				err = multierr.Append(err, fmt.Errorf("%w: wind level %g kt repeats weight band %g", ErrInvalidDataset, c.WindSpeed, bands[j].Weight))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].WindSpeed < out[j].WindSpeed })
	for i := 1; i < len(out); i++ {
		if out[i].WindSpeed == out[i-1].WindSpeed {
			err = multierr.Append(err, fmt.Errorf("%w: duplicate wind level %g kt", ErrInvalidDataset, out[i].WindSpeed))
		}
	}

	if err != nil {
		return nil, err
	}
	return &WindFamily{curves: out}, nil
}

// Load builds both families from a dataset.
func Load(ds Dataset) (*CurveFamily, *WindFamily, error) {
	family, ferr := LoadCurveFamily(ds.Curves)
	wind, werr := LoadWindFamily(ds.Wind)
	if err := multierr.Combine(ferr, werr); err != nil {
		return nil, nil, fmt.Errorf("loading dataset %q: %w", ds.Name, err)
	}
	return family, wind, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Len returns the number of curves.
func (f *CurveFamily) Len() int {
	return len(f.curves)
}

// Curves returns a copy of the curves, sorted by OAT.
func (f *CurveFamily) Curves() []OATCurve {
	out := make([]OATCurve, len(f.curves))
	for i, c := range f.curves {
		out[i] = cloneCurve(c)
	}
	return out
}

// Curve returns a copy of the i-th curve.
func (f *CurveFamily) Curve(i int) OATCurve {
	return cloneCurve(f.curves[i])
}

// OATs returns the sampled temperatures in ascending order.
func (f *CurveFamily) OATs() []float64 {
	out := make([]float64, len(f.curves))
	for i, c := range f.curves {
		out[i] = c.OAT
	}
	return out
}

// MinOAT returns the coldest sampled temperature.
func (f *CurveFamily) MinOAT() float64 {
	return f.curves[0].OAT
}

// MaxOAT returns the hottest sampled temperature.
func (f *CurveFamily) MaxOAT() float64 {
	return f.curves[len(f.curves)-1].OAT
}

// AltitudeSpan returns the lowest and highest altitude sampled by any curve.
func (f *CurveFamily) AltitudeSpan() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, c := range f.curves {
		for _, p := range c.Points {
			lo = math.Min(lo, p.Altitude)
			hi = math.Max(hi, p.Altitude)
		}
	}
	return lo, hi
}

// Curves returns a copy of the wind curves, sorted by wind speed.
func (w *WindFamily) Curves() []WindCreditCurve {
	out := make([]WindCreditCurve, len(w.curves))
	for i, c := range w.curves {
		bands := make([]CreditBand, len(c.Bands))
		copy(bands, c.Bands)
		out[i] = WindCreditCurve{WindSpeed: c.WindSpeed, Bands: bands}
	}
	return out
}

// Levels returns the sampled wind speeds in ascending order.
func (w *WindFamily) Levels() []float64 {
	out := make([]float64, len(w.curves))
	for i, c := range w.curves {
		out[i] = c.WindSpeed
	}
	return out
}

// BandWeights returns the weight bands of the lowest wind level.
func (w *WindFamily) BandWeights() []float64 {
	bands := w.curves[0].Bands
	out := make([]float64, len(bands))
	for i, b := range bands {
		out[i] = b.Weight
	}
	return out
}
