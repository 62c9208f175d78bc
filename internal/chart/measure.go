package chart

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Metrics is the pixel size of a text run.
type Metrics struct {
	Width   float64
	Ascent  float64
	Descent float64
}

// Height returns ascent plus descent.
func (m Metrics) Height() float64 { return m.Ascent + m.Descent }

// Measurer sizes text so label backgrounds can be laid out before drawing.
type Measurer interface {
	Measure(text string) Metrics
}

// FaceMeasurer measures text with a font face.
type FaceMeasurer struct {
	Face font.Face
	// Name is the CSS font shorthand browsers should use for the same face.
	Name string
}

// DefaultMeasurer measures with the 7x13 bitmap face the raster adapter
// draws with.
func DefaultMeasurer() FaceMeasurer {
	return FaceMeasurer{Face: basicfont.Face7x13, Name: "13px monospace"}
}

// Measure implements Measurer.
func (m FaceMeasurer) Measure(text string) Metrics {
	adv := font.MeasureString(m.Face, text)
	fm := m.Face.Metrics()
	return Metrics{
		Width:   float64(adv.Ceil()),
		Ascent:  float64(fm.Ascent.Ceil()),
		Descent: float64(fm.Descent.Ceil()),
	}
}
