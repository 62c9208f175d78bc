// Package chart maps chart data to pixels and turns performance queries into
// a flat list of draw operations.
//
// The package never touches a drawing surface. Callers hand the operations
// to an adapter (the raster package, the browser canvas in web/) which does
// the actual pixel writes.
package chart

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ErrInvalidPanel wraps every panel geometry error.
var ErrInvalidPanel = errors.New("invalid panel")

// AxisKind selects how an axis maps data values to pixels.
type AxisKind int

const (
	// Linear maps the data range affinely onto the pixel range.
	Linear AxisKind = iota
	// DiscreteLevels gives every gap between consecutive levels the same
	// pixel extent, whatever its numeric width.
	DiscreteLevels
)

func (k AxisKind) String() string {
	switch k {
	case Linear:
		return "linear"
	case DiscreteLevels:
		return "discrete_levels"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k AxisKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AxisKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "linear":
		*k = Linear
	case "discrete_levels":
		*k = DiscreteLevels
	default:
		return fmt.Errorf("unknown axis kind %q", b)
	}
	return nil
}

// Axis describes one panel axis.
type Axis struct {
	Kind   AxisKind  `json:"kind"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Levels []float64 `json:"levels,omitempty"`

	// Invert maps larger values towards the start of the pixel range. Y
	// axes whose values grow upwards set it.
	Invert bool `json:"invert,omitempty"`
}

// LinearAxis returns a linear axis over [lo, hi].
func LinearAxis(lo, hi float64, invert bool) Axis {
	return Axis{Kind: Linear, Min: lo, Max: hi, Invert: invert}
}

// LevelAxis returns a discrete-levels axis. levels must be increasing.
func LevelAxis(levels ...float64) Axis {
	lv := make([]float64, len(levels))
	copy(lv, levels)
	a := Axis{Kind: DiscreteLevels, Levels: lv}
	if len(lv) > 0 {
		a.Min, a.Max = lv[0], lv[len(lv)-1]
	}
	return a
}

func (a Axis) validate(name string) error {
	switch a.Kind {
	case Linear:
		if !finite(a.Min) || !finite(a.Max) || a.Max <= a.Min {
			return fmt.Errorf("%w: %s axis range [%g, %g] has no extent", ErrInvalidPanel, name, a.Min, a.Max)
		}
	case DiscreteLevels:
		if len(a.Levels) < 2 {
			return fmt.Errorf("%w: %s axis needs at least 2 levels, got %d", ErrInvalidPanel, name, len(a.Levels))
		}
		for i := 1; i < len(a.Levels); i++ {
			if !(a.Levels[i] > a.Levels[i-1]) {
				return fmt.Errorf("%w: %s axis levels must increase, got %g after %g", ErrInvalidPanel, name, a.Levels[i], a.Levels[i-1])
			}
		}
	default:
		return fmt.Errorf("%w: %s axis has unknown kind %d", ErrInvalidPanel, name, int(a.Kind))
	}
	return nil
}

// toPixel maps v onto the pixel range [lo, hi].
func (a Axis) toPixel(v, lo, hi float64) float64 {
	extent := hi - lo
	if a.Kind == Linear {
		t := (v - a.Min) / (a.Max - a.Min)
		if a.Invert {
			return hi - t*extent
		}
		return lo + t*extent
	}

	n := len(a.Levels)
	start, end := lo, hi
	if a.Invert {
		start, end = hi, lo
	}
	if math.IsNaN(v) || v <= a.Levels[0] {
		return start
	}
	if v >= a.Levels[n-1] {
		return end
	}

	segment := extent / float64(n-1)
	for i := 0; i+1 < n; i++ {
		l0, l1 := a.Levels[i], a.Levels[i+1]
		if v > l1 {
			continue
		}
		off := float64(i)*segment + (v-l0)/(l1-l0)*segment
		if a.Invert {
			return hi - off
		}
		return lo + off
	}
	return end
}

// fromPixel is the inverse of toPixel.
func (a Axis) fromPixel(p, lo, hi float64) float64 {
	extent := hi - lo
	off := p - lo
	if a.Invert {
		off = hi - p
	}
	if a.Kind == Linear {
		return a.Min + off/extent*(a.Max-a.Min)
	}

	n := len(a.Levels)
	if off <= 0 {
		return a.Levels[0]
	}
	if off >= extent {
		return a.Levels[n-1]
	}
	segment := extent / float64(n-1)
	s := off / segment
	i := int(math.Floor(s))
	if i >= n-1 {
		return a.Levels[n-1]
	}
	return a.Levels[i] + (s-float64(i))*(a.Levels[i+1]-a.Levels[i])
}

// Ticks returns grid positions: multiples of step inside a linear range, or
// the levels of a discrete axis.
func (a Axis) Ticks(step float64) []float64 {
	if a.Kind == DiscreteLevels {
		out := make([]float64, len(a.Levels))
		copy(out, a.Levels)
		return out
	}
	if step <= 0 {
		return []float64{a.Min, a.Max}
	}
	first := math.Ceil(a.Min/step - 1e-9)
	last := math.Floor(a.Max/step + 1e-9)
	var out []float64
	for k := first; k <= last; k++ {
		out = append(out, k*step)
	}
	return out
}

// Bounds is a pixel rectangle. Y grows downwards.
type Bounds struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.Bottom - b.Top }

// Clamp moves p inside b.
func (b Bounds) Clamp(p Pt) Pt {
	return Pt{
		X: math.Min(math.Max(p.X, b.Left), b.Right),
		Y: math.Min(math.Max(p.Y, b.Top), b.Bottom),
	}
}

// Panel is one independently scaled chart panel. Panels never share mapping
// state.
type Panel struct {
	Name   string `json:"name"`
	Bounds Bounds `json:"bounds"`
	X      Axis   `json:"x"`
	Y      Axis   `json:"y"`
}

// NewPanel validates the geometry and returns the panel. Zero-extent pixel
// bounds or axis ranges are configuration errors.
func NewPanel(name string, b Bounds, x, y Axis) (Panel, error) {
	var err error
	if !finite(b.Left) || !finite(b.Right) || b.Width() <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %s has no pixel width (left=%g right=%g)", ErrInvalidPanel, name, b.Left, b.Right))
	}
	if !finite(b.Top) || !finite(b.Bottom) || b.Height() <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %s has no pixel height (top=%g bottom=%g)", ErrInvalidPanel, name, b.Top, b.Bottom))
	}
	err = multierr.Append(err, x.validate(name+" x"))
	err = multierr.Append(err, y.validate(name+" y"))
	if err != nil {
		return Panel{}, err
	}
	return Panel{Name: name, Bounds: b, X: x, Y: y}, nil
}

// ToPixel maps a data coordinate to pixels.
func (p Panel) ToPixel(x, y float64) (px, py float64) {
	return p.X.toPixel(x, p.Bounds.Left, p.Bounds.Right), p.Y.toPixel(y, p.Bounds.Top, p.Bounds.Bottom)
}

// FromPixel maps pixels back to a data coordinate.
func (p Panel) FromPixel(px, py float64) (x, y float64) {
	return p.X.fromPixel(px, p.Bounds.Left, p.Bounds.Right), p.Y.fromPixel(py, p.Bounds.Top, p.Bounds.Bottom)
}

// Pt maps a data coordinate to a pixel point.
func (p Panel) Pt(x, y float64) Pt {
	px, py := p.ToPixel(x, y)
	return Pt{X: px, Y: py}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
