package chart

import "fmt"

// Theme holds the colours used for each layer.
type Theme struct {
	Background string `json:"background"`
	Frame      string `json:"frame"`
	Grid       string `json:"grid"`
	Text       string `json:"text"`
	Curve      string `json:"curve"`
	WindCurve  string `json:"wind_curve"`
	Probe      string `json:"probe"`
	Marker     string `json:"marker"`
	LabelBg    string `json:"label_bg"`
	Warning    string `json:"warning"`
}

// DefaultTheme is a dark-on-light palette close to the printed chart.
func DefaultTheme() Theme {
	return Theme{
		Background: "#ffffff",
		Frame:      "#202020",
		Grid:       "#d0d0d0",
		Text:       "#202020",
		Curve:      "#1f4e9c",
		WindCurve:  "#2e7d32",
		Probe:      "#d32f2f",
		Marker:     "#d32f2f",
		LabelBg:    "#fff8e1",
		Warning:    "#b71c1c",
	}
}

// Layout is the fixed geometry of the two chart panels on one image.
type Layout struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	HOGE   Panel `json:"hoge"`
	Wind   Panel `json:"wind"`

	// Tick spacing for the linear axes.
	WeightStep   float64 `json:"weight_step"`
	AltitudeStep float64 `json:"altitude_step"`
}

// DefaultLayout returns the reference chart geometry: gross weight 30 to 50
// (hundreds of kg) across both panels, pressure altitude -1 to 10 (thousands
// of ft) on the HOGE panel and wind levels 5, 10, 20 and 50 kt on the wind
// panel with 5 kt at the top.
func DefaultLayout() Layout {
	return Layout{
		Width:  720,
		Height: 900,
		HOGE: mustPanel(NewPanel("HOGE GROSS WEIGHT x100 KG",
			Bounds{Left: 70, Right: 690, Top: 40, Bottom: 560},
			LinearAxis(30, 50, false),
			LinearAxis(-1, 10, true),
		)),
		Wind: mustPanel(NewPanel("WIND CREDIT KT",
			Bounds{Left: 70, Right: 690, Top: 620, Bottom: 860},
			LinearAxis(30, 50, false),
			LevelAxis(5, 10, 20, 50),
		)),
		WeightStep:   1,
		AltitudeStep: 1,
	}
}

// Validate checks that both panels fit inside the image.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: image size %dx%d", ErrInvalidPanel, l.Width, l.Height)
	}
	for _, p := range []Panel{l.HOGE, l.Wind} {
		b := p.Bounds
		if b.Left < 0 || b.Top < 0 || b.Right > float64(l.Width) || b.Bottom > float64(l.Height) {
			return fmt.Errorf("%w: %s does not fit in %dx%d", ErrInvalidPanel, p.Name, l.Width, l.Height)
		}
	}
	return nil
}

func mustPanel(p Panel, err error) Panel {
	if err != nil {
		panic(err)
	}
	return p
}
