package perf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseCredit_Breakpoints(t *testing.T) {
	tests := []struct {
		wind float64
		want float64
	}{
		{-3, 0},
		{0, 0},
		{2.5, 25},
		{5, 50},
		{7.5, 87.5},
		{10, 125},
		{15, 185},
		{20, 245},
		{35, 320},
		{50, 395},
		{80, 395},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, BaseCredit(tt.wind), 1e-9, "wind=%g", tt.wind)
	}
}

func TestBaseCredit_ContinuousAtBreakpoints(t *testing.T) {
	for _, s := range creditTable {
		below := BaseCredit(s.to - 1e-9)
		above := BaseCredit(s.to + 1e-9)
		assert.InDelta(t, below, above, 1e-6, "discontinuity at %g kt", s.to)
	}
}

func TestCreditFor_FullBenefitIsUnscaled(t *testing.T) {
	for _, wind := range []float64{0, 3, 5, 12, 20, 42, 50, 65} {
		for _, weight := range []float64{4400, 100, 1, 0, -50, math.NaN()} {
			assert.Equal(t, BaseCredit(wind), CreditFor(wind, weight, 100), "wind=%g weight=%g", wind, weight)
		}
	}
	assert.Equal(t, 245.0, CreditFor(20, 0, 100))
	assert.Equal(t, 395.0, CreditFor(50, 100, 100))
}

func TestCreditFor_ZeroBenefitIsZero(t *testing.T) {
	for _, wind := range []float64{0, 3, 5, 12, 20, 42, 50, 65} {
		for _, weight := range []float64{0, 1, 3300, 4700} {
			assert.Zero(t, CreditFor(wind, weight, 0), "wind=%g weight=%g", wind, weight)
		}
	}
}

func TestCreditFor_Scaling(t *testing.T) {
	tests := []struct {
		name    string
		wind    float64
		weight  float64
		benefit float64
		want    float64
	}{
		{"half benefit", 10, 4000, 50, 62.5},
		{"benefit above 100 clamps", 10, 4000, 150, 125},
		{"negative benefit clamps", 10, 4000, -20, 0},
		{"no base weight", 20, 0, 100, 245},
		{"negative base weight", 20, -50, 50, 122.5},
		{"credit above base weight", 50, 100, 100, 395},
		{"NaN benefit", 10, 4000, math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CreditFor(tt.wind, tt.weight, tt.benefit), 1e-9)
		})
	}
}

func testWind() []WindCreditCurve {
	return []WindCreditCurve{
		{WindSpeed: 20, Bands: []CreditBand{{33, 220}, {38, 235}, {43, 245}}},
		{WindSpeed: 5, Bands: []CreditBand{{33, 40}, {38, 45}, {43, 50}}},
		{WindSpeed: 10, Bands: []CreditBand{{33, 110}, {38, 120}, {43, 125}}},
		{WindSpeed: 50, Bands: []CreditBand{{43, 395}, {33, 360}, {38, 380}}},
	}
}

func TestLoadWindFamily(t *testing.T) {
	w, err := LoadWindFamily(testWind())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10, 20, 50}, w.Levels())
	assert.Equal(t, []float64{33, 38, 43}, w.BandWeights())

	// Bands are sorted by weight on load.
	top := w.Curves()[3]
	assert.Equal(t, []CreditBand{{33, 360}, {38, 380}, {43, 395}}, top.Bands)
}

func TestLoadWindFamily_Errors(t *testing.T) {
	_, err := LoadWindFamily(testWind()[:1])
	assert.ErrorIs(t, err, ErrInvalidDataset)

	bad := testWind()
	bad[0].Bands = bad[0].Bands[:1]
	bad[1].WindSpeed = 10
	_, err = LoadWindFamily(bad)
	assert.ErrorIs(t, err, ErrInvalidDataset)
	assert.ErrorContains(t, err, "bands")
	assert.ErrorContains(t, err, "duplicate wind level 10")
}

func TestTableCredit(t *testing.T) {
	w, err := LoadWindFamily(testWind())
	require.NoError(t, err)

	tests := []struct {
		name        string
		wind        float64
		weight      float64
		want        float64
		wantClamped bool
	}{
		{"exact level and band", 10, 38, 120, false},
		{"between bands", 10, 35.5, 115, false},
		{"between levels", 15, 38, 177.5, false},
		{"below first level", 2, 33, 40, true},
		{"above last level", 70, 43, 395, true},
		{"weight above bands", 20, 47, 245, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := w.TableCredit(tt.wind, tt.weight)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.wantClamped, clamped)
		})
	}
}

func TestLoad(t *testing.T) {
	f, w, err := Load(Dataset{Name: "test", Curves: testCurves(), Wind: testWind()})
	require.NoError(t, err)
	assert.Equal(t, 5, f.Len())
	assert.Len(t, w.Levels(), 4)

	_, _, err = Load(Dataset{Name: "broken"})
	assert.ErrorIs(t, err, ErrInvalidDataset)
	assert.ErrorContains(t, err, `loading dataset "broken"`)
}

func TestUnits(t *testing.T) {
	assert.Equal(t, 0.3, FeetToChart(300))
	assert.Equal(t, 4400.0, ChartToKg(44))
	assert.Equal(t, 44.0, KgToChart(4400))

	u, err := ParseDisplayUnit("LB")
	require.NoError(t, err)
	assert.Equal(t, UnitLb, u)
	assert.InDelta(t, 4400*2.20462, u.FromChart(44), 1e-9)

	u, err = ParseDisplayUnit("")
	require.NoError(t, err)
	assert.Equal(t, 4400.0, u.FromChart(44))

	_, err = ParseDisplayUnit("stone")
	assert.Error(t, err)
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name  string
		curve OATCurve
		probe float64
		axis  ProbeAxis
		want  []float64
	}{
		{"vertex shared by two segments", oat0, 5.6, ProbeAltitude, []float64{38, 38}},
		{"inside one segment", oat0, 3.8, ProbeAltitude, []float64{40.75}},
		{"weight probe", oat0, 44.5, ProbeWeight, []float64{-0.2}},
		{"no crossing", oat0, 50, ProbeAltitude, nil},
		{"NaN altitude", oat0, math.NaN(), ProbeAltitude, nil},
		{"NaN weight", oat0, math.NaN(), ProbeWeight, nil},
		{
			"curve crossing twice",
			OATCurve{Points: []Point{{0, 10}, {5, 20}, {0, 30}}},
			2.5, ProbeAltitude,
			[]float64{15, 25},
		},
		{
			"flat segment on probe",
			OATCurve{Points: []Point{{1, 10}, {1, 20}}},
			1, ProbeAltitude,
			[]float64{10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intersect(tt.curve, tt.probe, tt.axis)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestProbeAxisString(t *testing.T) {
	assert.Equal(t, "altitude", ProbeAltitude.String())
	assert.Equal(t, "weight", ProbeWeight.String())
	assert.Equal(t, "unknown", ProbeAxis(7).String())
}
