package chart

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

const (
	labelPad     = 3.0
	markerSize   = 6.0
	tickLabelGap = 6.0
)

var probeDash = []float64{6, 4}

// RenderGrid draws the panel frame, one grid line per tick and a label for
// each tick outside the frame.
func RenderGrid(p Panel, xTicks, yTicks []float64, th Theme, m Measurer) []Op {
	b := p.Bounds
	grid := Style{Stroke: th.Grid, Width: 1}
	text := Style{Fill: th.Text}

	ops := make([]Op, 0, 2*(len(xTicks)+len(yTicks))+2)
	for _, x := range xTicks {
		px, _ := p.ToPixel(x, p.Y.Min)
		ops = append(ops, Line(LayerGrid, Pt{px, b.Top}, Pt{px, b.Bottom}, grid))
	}
	for _, y := range yTicks {
		_, py := p.ToPixel(p.X.Min, y)
		ops = append(ops, Line(LayerGrid, Pt{b.Left, py}, Pt{b.Right, py}, grid))
	}
	ops = append(ops, Rect(LayerFrame, b.Left, b.Top, b.Width(), b.Height(), Style{Stroke: th.Frame, Width: 1.5}))

	for _, x := range xTicks {
		px, _ := p.ToPixel(x, p.Y.Min)
		s := formatTick(x)
		tm := m.Measure(s)
		ops = append(ops, Text(LayerGrid, px-tm.Width/2, b.Bottom+tickLabelGap+tm.Ascent, s, text))
	}
	for _, y := range yTicks {
		_, py := p.ToPixel(p.X.Min, y)
		s := formatTick(y)
		tm := m.Measure(s)
		ops = append(ops, Text(LayerGrid, b.Left-tickLabelGap-tm.Width, py+tm.Ascent/2, s, text))
	}
	if p.Name != "" {
		tm := m.Measure(p.Name)
		ops = append(ops, Text(LayerFrame, b.Left, b.Top-tickLabelGap-tm.Descent, p.Name, text))
	}
	return ops
}

// RenderCurveFamily draws one polyline per OAT curve and labels it next to
// its last point.
func RenderCurveFamily(p Panel, family *perf.CurveFamily, th Theme, m Measurer) []Op {
	if family == nil {
		return nil
	}
	line := Style{Stroke: th.Curve, Width: 1.5}
	text := Style{Fill: th.Curve}

	curves := family.Curves()
	ops := make([]Op, 0, 2*len(curves))
	for _, c := range curves {
		pts := make([]Pt, len(c.Points))
		for i, pt := range c.Points {
			pts[i] = p.Pt(pt.Weight, pt.Altitude)
		}
		ops = append(ops, Polyline(LayerCurve, pts, line))

		last := pts[len(pts)-1]
		s := formatTick(c.OAT) + "C"
		tm := m.Measure(s)
		ops = append(ops, Text(LayerCurve, last.X+labelPad, last.Y+tm.Ascent/2, s, text))
	}
	return ops
}

// RenderWindFamily draws one credit line per weight band. A band line runs
// through (weight + credit, level) for every wind level. Nil weights means
// the bands sampled by the table.
func RenderWindFamily(p Panel, wind *perf.WindFamily, weights []float64, th Theme, m Measurer) []Op {
	if wind == nil {
		return nil
	}
	if weights == nil {
		weights = wind.BandWeights()
	}
	levels := wind.Levels()
	line := Style{Stroke: th.WindCurve, Width: 1.5}
	text := Style{Fill: th.WindCurve}

	ops := make([]Op, 0, 2*len(weights))
	for _, w := range weights {
		pts := make([]Pt, len(levels))
		for i, l := range levels {
			credit, _ := wind.TableCredit(l, w)
			pts[i] = p.Pt(w+perf.KgToChart(credit), l)
		}
		ops = append(ops, Polyline(LayerCurve, pts, line))

		top := pts[0]
		s := formatTick(w)
		tm := m.Measure(s)
		ops = append(ops, Text(LayerCurve, top.X-tm.Width/2, top.Y-labelPad-tm.Descent, s, text))
	}
	return ops
}

// OverlayQuery is one set of user inputs.
type OverlayQuery struct {
	OAT            float64          `json:"oat"`
	AltitudeFt     float64          `json:"altitude_ft"`
	WindSpeed      *float64         `json:"wind,omitempty"`
	BenefitPercent *float64         `json:"benefit,omitempty"`
	Unit           perf.DisplayUnit `json:"unit,omitempty"`
}

// WindResult is the wind credit part of an overlay.
type WindResult struct {
	WindSpeed      float64 `json:"wind_speed"`
	BenefitPercent float64 `json:"benefit_percent"`
	CreditKg       float64 `json:"credit_kg"`
	TotalKg        float64 `json:"total_kg"`
	Credit         float64 `json:"credit"`
	Total          float64 `json:"total"`
	// Clamped is set when the wind speed lies outside the drawn levels.
	Clamped bool `json:"clamped"`
}

// OverlayResult carries the numbers behind an overlay.
type OverlayResult struct {
	Query    perf.QueryResult `json:"query"`
	Altitude float64          `json:"altitude"`
	WeightKg float64          `json:"weight_kg"`
	// Weight is WeightKg in Unit.
	Weight        float64          `json:"weight"`
	Unit          perf.DisplayUnit `json:"unit"`
	OutOfEnvelope bool             `json:"out_of_envelope"`
	Wind          *WindResult      `json:"wind,omitempty"`
}

// Renderer turns queries into draw operations for a fixed layout. It holds
// no per-call state and is safe for concurrent use.
type Renderer struct {
	Family   *perf.CurveFamily
	Wind     *perf.WindFamily
	Layout   Layout
	Measurer Measurer
	Theme    Theme
}

// NewRenderer returns a renderer with the default layout, theme and
// measurer.
func NewRenderer(family *perf.CurveFamily, wind *perf.WindFamily) *Renderer {
	return &Renderer{
		Family:   family,
		Wind:     wind,
		Layout:   DefaultLayout(),
		Measurer: DefaultMeasurer(),
		Theme:    DefaultTheme(),
	}
}

// With returns a copy of r drawing the given families.
func (r *Renderer) With(family *perf.CurveFamily, wind *perf.WindFamily) *Renderer {
	cp := *r
	cp.Family = family
	cp.Wind = wind
	return &cp
}

// RenderOverlay draws the probes, marker and labels for q.
func (r *Renderer) RenderOverlay(q OverlayQuery) ([]Op, OverlayResult) {
	unit := q.Unit
	if unit == "" {
		unit = perf.UnitKg
	}
	alt := perf.FeetToChart(q.AltitudeFt)
	qr := r.Family.WeightAt(q.OAT, alt)
	res := OverlayResult{
		Query:         qr,
		Altitude:      alt,
		Unit:          unit,
		OutOfEnvelope: qr.OutOfEnvelope(),
	}
	if math.IsNaN(qr.Weight) {
		return nil, res
	}
	res.WeightKg = perf.ChartToKg(qr.Weight)
	res.Weight = unit.FromKg(res.WeightKg)

	th := r.Theme
	probe := Style{Stroke: th.Probe, Width: 1.5, Dash: probeDash}
	p := r.Layout.HOGE
	b := p.Bounds

	hit := p.Pt(qr.Weight, alt)
	ops := []Op{
		Line(LayerProbe, Pt{b.Left, hit.Y}, hit, probe),
		Line(LayerProbe, hit, Pt{hit.X, b.Bottom}, probe),
		r.marker(hit),
	}
	ops = append(ops, r.label(b, b.Left+labelPad*2, hit.Y-labelPad*2, formatFeet(q.AltitudeFt))...)
	ops = append(ops, r.label(b, hit.X+labelPad*2, b.Bottom-labelPad*2, formatWeight(res.Weight, unit))...)
	ops = append(ops, r.label(b, hit.X+markerSize+labelPad, hit.Y-markerSize-labelPad, "OAT "+formatTick(q.OAT)+" C")...)

	if res.OutOfEnvelope {
		ops = append(ops, r.warning(b)...)
	}

	if q.WindSpeed != nil {
		wops, wr := r.windOverlay(*q.WindSpeed, q.BenefitPercent, qr.Weight, unit)
		ops = append(ops, wops...)
		res.Wind = &wr
	}
	return ops, res
}

func (r *Renderer) windOverlay(speed float64, benefit *float64, weight float64, unit perf.DisplayUnit) ([]Op, WindResult) {
	pct := 100.0
	if benefit != nil {
		pct = *benefit
	}
	baseKg := perf.ChartToKg(weight)
	credit := perf.CreditFor(speed, baseKg, pct)
	wr := WindResult{
		WindSpeed:      speed,
		BenefitPercent: pct,
		CreditKg:       credit,
		TotalKg:        baseKg + credit,
		Credit:         unit.FromKg(credit),
		Total:          unit.FromKg(baseKg + credit),
	}
	p := r.Layout.Wind
	b := p.Bounds
	if levels := p.Y.Levels; len(levels) > 0 {
		wr.Clamped = math.IsNaN(speed) || speed < levels[0] || speed > levels[len(levels)-1]
	}

	th := r.Theme
	probe := Style{Stroke: th.Probe, Width: 1.5, Dash: probeDash}
	base := p.Pt(weight, speed)
	hit := p.Pt(weight+perf.KgToChart(credit), speed)

	ops := []Op{
		Line(LayerProbe, Pt{base.X, b.Top}, base, probe),
		Line(LayerProbe, Pt{b.Left, hit.Y}, hit, probe),
		Line(LayerProbe, hit, Pt{hit.X, b.Bottom}, probe),
		r.marker(hit),
	}
	ops = append(ops, r.label(b, b.Left+labelPad*2, hit.Y-labelPad*2, "WIND "+formatTick(speed)+" KT")...)
	ops = append(ops, r.label(b, hit.X+markerSize+labelPad, hit.Y-markerSize-labelPad, "+"+formatWeight(wr.Credit, unit))...)
	ops = append(ops, r.label(b, hit.X+labelPad*2, b.Bottom-labelPad*2, "TOTAL "+formatWeight(wr.Total, unit))...)
	return ops, wr
}

// Render draws a complete frame: both grids, both curve families and the
// overlay for q.
func (r *Renderer) Render(q OverlayQuery) Frame {
	l := r.Layout
	th := r.Theme
	var ops []Op
	ops = append(ops, RenderGrid(l.HOGE, l.HOGE.X.Ticks(l.WeightStep), l.HOGE.Y.Ticks(l.AltitudeStep), th, r.Measurer)...)
	ops = append(ops, RenderCurveFamily(l.HOGE, r.Family, th, r.Measurer)...)
	ops = append(ops, RenderGrid(l.Wind, l.Wind.X.Ticks(l.WeightStep), l.Wind.Y.Ticks(0), th, r.Measurer)...)
	ops = append(ops, RenderWindFamily(l.Wind, r.Wind, nil, th, r.Measurer)...)

	overlay, res := r.RenderOverlay(q)
	ops = append(ops, overlay...)
	return Frame{
		Width:      l.Width,
		Height:     l.Height,
		Background: th.Background,
		Ops:        ops,
		Result:     res,
	}
}

// Frame is a complete image worth of draw operations.
type Frame struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Background string        `json:"background"`
	Ops        []Op          `json:"ops"`
	Result     OverlayResult `json:"result"`
}

func (r *Renderer) marker(c Pt) Op {
	h := markerSize / 2
	return Rect(LayerMarker, c.X-h, c.Y-h, markerSize, markerSize, Style{Stroke: r.Theme.Marker, Fill: r.Theme.Marker, Width: 1})
}

// label emits an opaque background sized to the text followed by the text.
// The pair is shifted to stay inside b.
func (r *Renderer) label(b Bounds, x, y float64, s string) []Op {
	tm := r.Measurer.Measure(s)
	w := tm.Width + 2*labelPad
	h := tm.Height() + 2*labelPad

	left := x - labelPad
	top := y - tm.Ascent - labelPad
	left = math.Max(b.Left, math.Min(left, b.Right-w))
	top = math.Max(b.Top, math.Min(top, b.Bottom-h))

	return []Op{
		Rect(LayerLabel, left, top, w, h, Style{Fill: r.Theme.LabelBg, Stroke: r.Theme.Frame, Width: 0.5}),
		Text(LayerLabel, left+labelPad, top+labelPad+tm.Ascent, s, Style{Fill: r.Theme.Text}),
	}
}

func (r *Renderer) warning(b Bounds) []Op {
	const s = "OUTSIDE CHART DATA"
	tm := r.Measurer.Measure(s)
	x := b.Right - tm.Width - 3*labelPad
	y := b.Top + 2*labelPad
	return []Op{
		Rect(LayerWarning, x, y, tm.Width+2*labelPad, tm.Height()+2*labelPad, Style{Fill: r.Theme.LabelBg, Stroke: r.Theme.Warning, Width: 1}),
		Text(LayerWarning, x+labelPad, y+labelPad+tm.Ascent, s, Style{Fill: r.Theme.Warning}),
	}
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFeet(ft float64) string {
	return fmt.Sprintf("ALT %.0f FT", ft)
}

func formatWeight(v float64, unit perf.DisplayUnit) string {
	return fmt.Sprintf("%.0f %s", v, unit)
}
