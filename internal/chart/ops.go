package chart

// OpKind is the kind of a draw operation.
type OpKind string

const (
	OpLine     OpKind = "line"
	OpPolyline OpKind = "polyline"
	OpRect     OpKind = "rect"
	OpText     OpKind = "text"
)

// Layers group operations so adapters can toggle them.
const (
	LayerFrame   = "frame"
	LayerGrid    = "grid"
	LayerCurve   = "curve"
	LayerProbe   = "probe"
	LayerMarker  = "marker"
	LayerLabel   = "label"
	LayerWarning = "warning"
)

// Pt is a pixel coordinate.
type Pt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style carries stroke, fill and text attributes. Colours are "#rrggbb".
type Style struct {
	Stroke   string    `json:"stroke,omitempty"`
	Fill     string    `json:"fill,omitempty"`
	Width    float64   `json:"width,omitempty"`
	Dash     []float64 `json:"dash,omitempty"`
	Font     string    `json:"font,omitempty"`
	Align    string    `json:"align,omitempty"`
	Baseline string    `json:"baseline,omitempty"`
}

// Op is one draw operation in pixel space.
//
// line and polyline use Points. rect uses X, Y (top-left), W and H. text is
// drawn left-aligned with its alphabetic baseline at X, Y.
type Op struct {
	Kind   OpKind  `json:"kind"`
	Layer  string  `json:"layer,omitempty"`
	Points []Pt    `json:"points,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	W      float64 `json:"w,omitempty"`
	H      float64 `json:"h,omitempty"`
	Text   string  `json:"text,omitempty"`
	Style  Style   `json:"style"`
}

// Line returns a straight segment.
func Line(layer string, a, b Pt, st Style) Op {
	return Op{Kind: OpLine, Layer: layer, Points: []Pt{a, b}, Style: st}
}

// Polyline returns an open path through pts.
func Polyline(layer string, pts []Pt, st Style) Op {
	cp := make([]Pt, len(pts))
	copy(cp, pts)
	return Op{Kind: OpPolyline, Layer: layer, Points: cp, Style: st}
}

// Rect returns an axis-aligned rectangle.
func Rect(layer string, x, y, w, h float64, st Style) Op {
	return Op{Kind: OpRect, Layer: layer, X: x, Y: y, W: w, H: h, Style: st}
}

// Text returns a text run with its baseline origin at x, y.
func Text(layer string, x, y float64, s string, st Style) Op {
	st.Baseline = "alphabetic"
	if st.Align == "" {
		st.Align = "left"
	}
	return Op{Kind: OpText, Layer: layer, X: x, Y: y, Text: s, Style: st}
}

// Filter returns the operations of kind k in layer (any layer when empty).
func Filter(ops []Op, k OpKind, layer string) []Op {
	var out []Op
	for _, op := range ops {
		if op.Kind == k && (layer == "" || op.Layer == layer) {
			out = append(out, op)
		}
	}
	return out
}
