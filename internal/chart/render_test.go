package chart

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

// fixedMeasurer sizes every glyph 7px wide, 10px ascent, 3px descent.
type fixedMeasurer struct{}

func (fixedMeasurer) Measure(s string) Metrics {
	return Metrics{Width: 7 * float64(len(s)), Ascent: 10, Descent: 3}
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	family, err := perf.LoadCurveFamily([]perf.OATCurve{
		{OAT: 0, Points: []perf.Point{{9.2, 33}, {5.6, 38}, {2.0, 43.5}, {1.0, 44.2}, {-1.0, 44.7}}},
		{OAT: 20, Points: []perf.Point{{6.8, 33}, {3.6, 37.5}, {0.4, 42.2}, {-0.5, 43}, {-1, 43.4}}},
	})
	require.NoError(t, err)
	wind, err := perf.LoadWindFamily([]perf.WindCreditCurve{
		{WindSpeed: 5, Bands: []perf.CreditBand{{33, 40}, {43, 50}}},
		{WindSpeed: 10, Bands: []perf.CreditBand{{33, 110}, {43, 125}}},
		{WindSpeed: 20, Bands: []perf.CreditBand{{33, 220}, {43, 245}}},
		{WindSpeed: 50, Bands: []perf.CreditBand{{33, 360}, {43, 395}}},
	})
	require.NoError(t, err)

	r := NewRenderer(family, wind)
	r.Measurer = fixedMeasurer{}
	return r
}

func ptr(v float64) *float64 { return &v }

func TestRenderCurveFamily(t *testing.T) {
	r := testRenderer(t)
	p := r.Layout.HOGE
	ops := RenderCurveFamily(p, r.Family, r.Theme, r.Measurer)

	lines := Filter(ops, OpPolyline, LayerCurve)
	require.Len(t, lines, 2)
	assert.Len(t, lines[0].Points, 5)
	assert.Equal(t, p.Pt(33, 9.2), lines[0].Points[0])
	assert.Equal(t, p.Pt(44.7, -1), lines[0].Points[4])

	labels := Filter(ops, OpText, LayerCurve)
	require.Len(t, labels, 2)
	assert.Equal(t, "0C", labels[0].Text)
	assert.Equal(t, "20C", labels[1].Text)
	last := lines[1].Points[4]
	assert.Equal(t, last.X+labelPad, labels[1].X)

	// Polyline then label, curve by curve.
	assert.Equal(t, OpPolyline, ops[0].Kind)
	assert.Equal(t, OpText, ops[1].Kind)
}

func TestRenderWindFamily(t *testing.T) {
	r := testRenderer(t)
	p := r.Layout.Wind
	ops := RenderWindFamily(p, r.Wind, nil, r.Theme, r.Measurer)

	lines := Filter(ops, OpPolyline, "")
	require.Len(t, lines, 2)
	require.Len(t, lines[0].Points, 4)

	// 33 band at 10 kt: 33 + 110 kg.
	want := p.Pt(34.1, 10)
	assert.InDelta(t, want.X, lines[0].Points[1].X, 1e-9)
	assert.InDelta(t, want.Y, lines[0].Points[1].Y, 1e-9)
	assert.Equal(t, p.Bounds.Top, lines[0].Points[0].Y)
	assert.Equal(t, p.Bounds.Bottom, lines[0].Points[3].Y)
}

func TestRenderGrid(t *testing.T) {
	r := testRenderer(t)
	p := r.Layout.Wind
	ops := RenderGrid(p, []float64{30, 40, 50}, p.Y.Ticks(0), r.Theme, r.Measurer)

	assert.Len(t, Filter(ops, OpLine, LayerGrid), 7)
	assert.Len(t, Filter(ops, OpRect, LayerFrame), 1)

	var texts []string
	for _, op := range Filter(ops, OpText, "") {
		texts = append(texts, op.Text)
	}
	assert.Equal(t, []string{"30", "40", "50", "5", "10", "20", "50", p.Name}, texts)
}

func TestRenderOverlay_Probes(t *testing.T) {
	r := testRenderer(t)
	p := r.Layout.HOGE

	ops, res := r.RenderOverlay(OverlayQuery{OAT: 0, AltitudeFt: 5600})
	assert.Equal(t, 38.0, res.Query.Weight)
	assert.Equal(t, 3800.0, res.WeightKg)
	assert.Equal(t, perf.UnitKg, res.Unit)
	assert.InDelta(t, 5.6, res.Altitude, 1e-12)
	assert.Nil(t, res.Wind)

	probes := Filter(ops, OpLine, LayerProbe)
	require.Len(t, probes, 2)
	hit := p.Pt(38, 5.6)

	assert.Equal(t, []Pt{{p.Bounds.Left, hit.Y}, hit}, probes[0].Points)
	assert.Equal(t, []Pt{hit, {hit.X, p.Bounds.Bottom}}, probes[1].Points)
	assert.Len(t, Filter(ops, OpRect, LayerMarker), 1)
	assert.Empty(t, Filter(ops, OpText, LayerWarning))
}

func TestRenderOverlay_LabelBackgroundsFitText(t *testing.T) {
	r := testRenderer(t)
	ops, _ := r.RenderOverlay(OverlayQuery{OAT: 15, AltitudeFt: 300})

	labels := make([]Op, 0)
	for _, op := range ops {
		if op.Layer == LayerLabel {
			labels = append(labels, op)
		}
	}
	require.Len(t, labels, 6)

	var texts []string
	for i := 0; i < len(labels); i += 2 {
		bg, txt := labels[i], labels[i+1]
		require.Equal(t, OpRect, bg.Kind)
		require.Equal(t, OpText, txt.Kind)
		assert.NotEmpty(t, bg.Style.Fill)

		m := fixedMeasurer{}.Measure(txt.Text)
		assert.Equal(t, m.Width+2*labelPad, bg.W)
		assert.Equal(t, m.Height()+2*labelPad, bg.H)
		assert.Equal(t, bg.X+labelPad, txt.X)
		assert.Equal(t, bg.Y+labelPad+m.Ascent, txt.Y)
		texts = append(texts, txt.Text)
	}
	assert.Equal(t, "ALT 300 FT", texts[0])
	assert.True(t, strings.HasSuffix(texts[1], " kg"), texts[1])
	assert.Equal(t, "OAT 15 C", texts[2])
}

func TestRenderOverlay_DisplayUnit(t *testing.T) {
	r := testRenderer(t)
	ops, res := r.RenderOverlay(OverlayQuery{OAT: 0, AltitudeFt: 5600, Unit: perf.UnitLb})
	assert.InDelta(t, 3800*perf.LbPerKg, res.Weight, 1e-9)
	assert.Equal(t, 3800.0, res.WeightKg)

	found := false
	for _, op := range Filter(ops, OpText, LayerLabel) {
		if op.Text == "8378 lb" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRenderOverlay_OutsideChartData(t *testing.T) {
	r := testRenderer(t)
	ops, res := r.RenderOverlay(OverlayQuery{OAT: 45, AltitudeFt: 300})
	assert.True(t, res.OutOfEnvelope)
	assert.True(t, res.Query.ClampedHigh)

	warn := Filter(ops, OpText, LayerWarning)
	require.Len(t, warn, 1)
	assert.Equal(t, "OUTSIDE CHART DATA", warn[0].Text)
}

func TestRenderOverlay_Wind(t *testing.T) {
	r := testRenderer(t)
	p := r.Layout.Wind

	ops, res := r.RenderOverlay(OverlayQuery{OAT: 0, AltitudeFt: 5600, WindSpeed: ptr(10)})
	require.NotNil(t, res.Wind)
	assert.Equal(t, 100.0, res.Wind.BenefitPercent)
	assert.InDelta(t, 125, res.Wind.CreditKg, 1e-9)
	assert.InDelta(t, 3925, res.Wind.TotalKg, 1e-9)
	assert.False(t, res.Wind.Clamped)

	probes := Filter(ops, OpLine, LayerProbe)
	require.Len(t, probes, 5)
	hit := p.Pt(39.25, 10)
	assert.InDelta(t, hit.X, probes[3].Points[1].X, 1e-9)
	assert.InDelta(t, p.Bounds.Top+p.Bounds.Height()/3, probes[3].Points[0].Y, 1e-9)
	assert.Len(t, Filter(ops, OpRect, LayerMarker), 2)

	_, half := r.RenderOverlay(OverlayQuery{OAT: 0, AltitudeFt: 5600, WindSpeed: ptr(10), BenefitPercent: ptr(50)})
	assert.InDelta(t, 62.5, half.Wind.CreditKg, 1e-9)

	_, fast := r.RenderOverlay(OverlayQuery{OAT: 0, AltitudeFt: 5600, WindSpeed: ptr(70)})
	assert.True(t, fast.Wind.Clamped)
	assert.InDelta(t, 395, fast.Wind.CreditKg, 1e-9)
}

func TestRenderOverlay_NoFamily(t *testing.T) {
	r := NewRenderer(nil, nil)
	ops, res := r.RenderOverlay(OverlayQuery{OAT: 10, AltitudeFt: 300})
	assert.Empty(t, ops)
	assert.True(t, math.IsNaN(res.Query.Weight))
}

func TestRender_Deterministic(t *testing.T) {
	r := testRenderer(t)
	q := OverlayQuery{OAT: 12.5, AltitudeFt: 2500, WindSpeed: ptr(17), BenefitPercent: ptr(80)}

	a := r.Render(q)
	b := r.Render(q)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("Render not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, 720, a.Width)
	assert.Equal(t, "#ffffff", a.Background)
	assert.NotEmpty(t, Filter(a.Ops, OpPolyline, LayerCurve))
}

func TestRender_PanelsIndependent(t *testing.T) {
	r := testRenderer(t)
	q := OverlayQuery{OAT: 12.5, AltitudeFt: 2500}

	full := r.Render(q)
	l := r.Layout
	want := RenderCurveFamily(l.HOGE, r.Family, r.Theme, r.Measurer)
	got := Filter(full.Ops, OpPolyline, LayerCurve)[:2]
	if diff := cmp.Diff(Filter(want, OpPolyline, ""), got); diff != "" {
		t.Errorf("HOGE curves differ inside full frame (-want +got):\n%s", diff)
	}
}
