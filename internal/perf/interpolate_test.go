package perf

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var oat0 = OATCurve{OAT: 0, Points: []Point{{9.2, 33}, {5.6, 38}, {2.0, 43.5}, {1.0, 44.2}, {-1.0, 44.7}}}

func testCurves() []OATCurve {
	return []OATCurve{
		cloneCurve(oat0),
		{OAT: 10, Points: []Point{{8.0, 33}, {4.6, 38}, {1.2, 43}, {0.2, 43.7}, {-1.0, 44.3}}},
		{OAT: 20, Points: []Point{{6.8, 33}, {3.6, 37.5}, {0.4, 42.2}, {-0.5, 43.0}, {-1.0, 43.4}}},
		{OAT: 30, Points: []Point{{5.5, 33}, {2.6, 36.8}, {-0.3, 41.0}, {-1.0, 41.8}}},
		{OAT: 40, Points: []Point{{4.2, 33}, {1.5, 36.0}, {-1.0, 39.6}}},
	}
}

func testFamily(t *testing.T) *CurveFamily {
	t.Helper()
	f, err := LoadCurveFamily(testCurves())
	require.NoError(t, err)
	return f
}

func TestAltitudeInterpolate_ReferenceCurve(t *testing.T) {
	w, clamped := AltitudeInterpolate(oat0.Points, 5.6)
	assert.Equal(t, 38.0, w, "sampled altitude must return the sample exactly")
	assert.False(t, clamped)

	// Between 1.0→44.2 and -1.0→44.7.
	w, clamped = AltitudeInterpolate(oat0.Points, 0.3)
	assert.InDelta(t, 44.2+(1.0-0.3)/(1.0-(-1.0))*(44.7-44.2), w, 1e-9)
	assert.InDelta(t, 44.375, w, 1e-9)
	assert.False(t, clamped)
}

func TestAltitudeInterpolate_Clamps(t *testing.T) {
	tests := []struct {
		name        string
		altitude    float64
		wantWeight  float64
		wantClamped bool
	}{
		{"at minimum altitude", -1.0, 44.7, false},
		{"below minimum altitude", -4.0, 44.7, true},
		{"at maximum altitude", 9.2, 33, false},
		{"above maximum altitude", 15, 33, true},
		{"NaN altitude", math.NaN(), 44.7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, clamped := AltitudeInterpolate(oat0.Points, tt.altitude)
			assert.Equal(t, tt.wantWeight, w)
			assert.Equal(t, tt.wantClamped, clamped)
		})
	}
}

func TestAltitudeInterpolate_DoesNotMutateInput(t *testing.T) {
	pts := clonePoints(oat0.Points)
	AltitudeInterpolate(pts, 3)
	assert.Equal(t, oat0.Points, pts)
}

func TestAltitudeInterpolate_RepeatedAltitudeFallsBackToScan(t *testing.T) {
	pts := []Point{{0, 40}, {2, 30}, {2, 28}, {4, 20}}
	w, clamped := AltitudeInterpolate(pts, 1)
	assert.InDelta(t, 35, w, 1e-9)
	assert.False(t, clamped)
}

func TestWeightAt_ExactMatchUsesSingleCurve(t *testing.T) {
	f := testFamily(t)
	for _, c := range f.Curves() {
		for _, alt := range []float64{-1, 0, 0.3, 2.5, 5, 7.9} {
			want, _ := AltitudeInterpolate(c.Points, alt)
			got := f.WeightAt(c.OAT, alt)
			assert.Equal(t, want, got.Weight, "oat=%g alt=%g", c.OAT, alt)
			assert.Equal(t, []float64{c.OAT}, got.SourceOATs)
			assert.True(t, got.Exact())
		}
	}
}

func TestWeightAt_TenDegreesFiveThousandFeet(t *testing.T) {
	f := testFamily(t)
	res := f.WeightAt(10, 5)

	// 5 kft sits between 4.6→38 and 8.0→33 on the 10°C curve.
	assert.InDelta(t, 38+(5-4.6)/(8.0-4.6)*(33-38), res.Weight, 1e-9)
	assert.Equal(t, []float64{10}, res.SourceOATs)
	assert.False(t, res.ClampedLow)
	assert.False(t, res.ClampedHigh)
}

func TestWeightAt_BlendStaysBetweenBrackets(t *testing.T) {
	f := testFamily(t)
	curves := f.Curves()
	for i := 0; i+1 < len(curves); i++ {
		lower, upper := curves[i], curves[i+1]
		for _, frac := range []float64{0.1, 0.5, 0.9} {
			oat := lower.OAT + frac*(upper.OAT-lower.OAT)
			for _, alt := range []float64{-1, 0.5, 3, 6} {
				wl, _ := AltitudeInterpolate(lower.Points, alt)
				wu, _ := AltitudeInterpolate(upper.Points, alt)
				res := f.WeightAt(oat, alt)

				assert.Equal(t, []float64{lower.OAT, upper.OAT}, res.SourceOATs)
				assert.GreaterOrEqual(t, res.Weight, math.Min(wl, wu)-1e-12)
				assert.LessOrEqual(t, res.Weight, math.Max(wl, wu)+1e-12)
				assert.InDelta(t, wl+frac*(wu-wl), res.Weight, 1e-9)
			}
		}
	}
}

func TestWeightAt_ClampsTemperature(t *testing.T) {
	f := testFamily(t)

	cold := f.WeightAt(-25, 2)
	assert.True(t, cold.ClampedLow)
	assert.False(t, cold.ClampedHigh)
	assert.Equal(t, []float64{0}, cold.SourceOATs)
	assert.Equal(t, f.WeightAt(0, 2).Weight, cold.Weight)

	hot := f.WeightAt(55, 2)
	assert.True(t, hot.ClampedHigh)
	assert.False(t, hot.ClampedLow)
	assert.Equal(t, []float64{40}, hot.SourceOATs)
	assert.True(t, hot.OutOfEnvelope())

	nan := f.WeightAt(math.NaN(), 2)
	assert.True(t, nan.ClampedLow)
}

func TestWeightAt_ReportsAltitudeClamp(t *testing.T) {
	f := testFamily(t)
	res := f.WeightAt(15, 12)
	assert.True(t, res.AltitudeClamped)
	assert.InDelta(t, 33, res.Weight, 1e-9)
	assert.False(t, f.WeightAt(15, 1).AltitudeClamped)
}

func TestWeightAt_SingleCurveFamily(t *testing.T) {
	f, err := LoadCurveFamily([]OATCurve{oat0})
	require.NoError(t, err)

	res := f.WeightAt(17, 0.3)
	assert.InDelta(t, 44.375, res.Weight, 1e-9)
	assert.Equal(t, []float64{0}, res.SourceOATs)
	assert.True(t, res.ClampedHigh)
}

func TestWeightAt_UnsortedFamily(t *testing.T) {
	curves := testCurves()
	reversed := make([]OATCurve, len(curves))
	for i, c := range curves {
		reversed[len(curves)-1-i] = c
	}

	sorted := testFamily(t)
	f, err := LoadCurveFamily(reversed)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, f.OATs())

	// A family whose slice lost its order still brackets correctly.
	raw := &CurveFamily{curves: reversed}
	for _, oat := range []float64{5, 12.5, 33} {
		assert.InDelta(t, sorted.WeightAt(oat, 2).Weight, raw.WeightAt(oat, 2).Weight, 1e-12)
		assert.InDelta(t, sorted.WeightAt(oat, 2).Weight, f.WeightAt(oat, 2).Weight, 1e-12)
	}
}

func TestWeightAt_EmptyFamily(t *testing.T) {
	var f CurveFamily
	res := f.WeightAt(10, 1)
	assert.True(t, math.IsNaN(res.Weight))
}

func TestCurveForTemperature(t *testing.T) {
	f := testFamily(t)

	exact := f.CurveForTemperature(20)
	assert.Equal(t, f.Curve(2), exact)

	mid := f.CurveForTemperature(5)
	require.Len(t, mid.Points, 5)
	assert.Equal(t, 5.0, mid.OAT)
	assert.InDelta(t, (9.2+8.0)/2, mid.Points[0].Altitude, 1e-9)
	assert.InDelta(t, 33, mid.Points[0].Weight, 1e-9)
	assert.InDelta(t, (44.7+44.3)/2, mid.Points[4].Weight, 1e-9)

	clamped := f.CurveForTemperature(70)
	assert.Equal(t, f.Curve(4), clamped)
}

// The 30°C and 40°C curves have 4 and 3 points. Blending keeps only the
// common prefix; the fourth 30°C point is dropped rather than matched.
func TestCurveForTemperature_CommonPrefixTruncation(t *testing.T) {
	f := testFamily(t)

	c := f.CurveForTemperature(35)
	require.Len(t, c.Points, 3)
	assert.InDelta(t, (5.5+4.2)/2, c.Points[0].Altitude, 1e-9)
	assert.InDelta(t, (2.6+1.5)/2, c.Points[1].Altitude, 1e-9)
	assert.InDelta(t, (36.8+36.0)/2, c.Points[1].Weight, 1e-9)
	assert.InDelta(t, (-0.3+-1.0)/2, c.Points[2].Altitude, 1e-9)
	assert.InDelta(t, (41.0+39.6)/2, c.Points[2].Weight, 1e-9)
}

func TestLoadCurveFamily_Errors(t *testing.T) {
	tests := []struct {
		name       string
		curves     []OATCurve
		wantErrors int
	}{
		{"empty family", nil, 1},
		{"one point", []OATCurve{{OAT: 0, Points: []Point{{1, 40}}}}, 1},
		{"repeated altitude", []OATCurve{{OAT: 0, Points: []Point{{1, 40}, {1, 41}, {2, 39}}}}, 1},
		{"duplicate OAT", []OATCurve{oat0, oat0}, 1},
		{"non-finite point", []OATCurve{{OAT: 0, Points: []Point{{math.NaN(), 40}, {2, 39}}}}, 1},
		{
			"several defects reported together",
			[]OATCurve{
				{OAT: 0, Points: []Point{{1, 40}}},
				{OAT: 10, Points: []Point{{1, 40}, {1, 41}}},
				{OAT: math.Inf(1), Points: []Point{{1, 40}, {2, 41}}},
			},
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := LoadCurveFamily(tt.curves)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, ErrInvalidDataset))
			assert.Len(t, multierr.Errors(err), tt.wantErrors)
		})
	}
}

func TestLoadCurveFamily_CopiesInput(t *testing.T) {
	curves := testCurves()
	f, err := LoadCurveFamily(curves)
	require.NoError(t, err)

	curves[0].Points[0].Weight = 99
	assert.Equal(t, 33.0, f.Curve(0).Points[0].Weight)

	got := f.Curves()
	got[0].Points[0].Weight = 99
	assert.Equal(t, 33.0, f.Curve(0).Points[0].Weight)
}

func TestCurveFamily_Span(t *testing.T) {
	f := testFamily(t)
	assert.Equal(t, 0.0, f.MinOAT())
	assert.Equal(t, 40.0, f.MaxOAT())
	lo, hi := f.AltitudeSpan()
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 9.2, hi)
}
