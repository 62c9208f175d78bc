package raster

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

var white = color.RGBA{255, 255, 255, 255}

func TestDraw_Background(t *testing.T) {
	img, err := Draw(nil, 8, 4, "#ffffff")
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
	assert.Equal(t, white, img.RGBAAt(3, 2))
}

func TestDraw_FilledRect(t *testing.T) {
	ops := []chart.Op{chart.Rect(chart.LayerLabel, 10, 10, 20, 10, chart.Style{Fill: "#ff0000"})}
	img, err := Draw(ops, 40, 40, "#ffffff")
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(15, 15))
	assert.Equal(t, white, img.RGBAAt(35, 35))
}

func TestDraw_LineAndText(t *testing.T) {
	ops := []chart.Op{
		chart.Line(chart.LayerProbe, chart.Pt{X: 0, Y: 4}, chart.Pt{X: 40, Y: 4}, chart.Style{Stroke: "#000000", Width: 2}),
		chart.Text(chart.LayerLabel, 2, 30, "HOGE", chart.Style{Fill: "#000"}),
	}
	img, err := Draw(ops, 40, 40, "#ffffff")
	require.NoError(t, err)

	assert.NotEqual(t, white, img.RGBAAt(20, 4))

	inked := 0
	for y := 18; y <= 32; y++ {
		for x := 2; x < 32; x++ {
			if img.RGBAAt(x, y) != white {
				inked++
			}
		}
	}
	assert.Positive(t, inked)
}

func TestDraw_Errors(t *testing.T) {
	_, err := Draw(nil, 0, 10, "#ffffff")
	assert.Error(t, err)

	_, err = Draw(nil, 10, 10, "white")
	assert.ErrorIs(t, err, ErrBadColor)

	_, err = Draw([]chart.Op{chart.Line("", chart.Pt{}, chart.Pt{X: 1}, chart.Style{Stroke: "#12"})}, 10, 10, "#fff")
	assert.ErrorIs(t, err, ErrBadColor)

	_, err = Draw([]chart.Op{{Kind: "circle"}}, 10, 10, "#fff")
	assert.ErrorContains(t, err, "unknown op kind")
}

func TestEncodePNG_FrameSize(t *testing.T) {
	family, err := perf.LoadCurveFamily([]perf.OATCurve{
		{OAT: 0, Points: []perf.Point{{9.2, 33}, {5.6, 38}, {-1, 44.7}}},
		{OAT: 20, Points: []perf.Point{{6.8, 33}, {3.6, 37.5}, {-1, 43.4}}},
	})
	require.NoError(t, err)
	r := chart.NewRenderer(family, nil)
	frame := r.Render(chart.OverlayQuery{OAT: 10, AltitudeFt: 300})

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, frame))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, frame.Width, img.Bounds().Dx())
	assert.Equal(t, frame.Height, img.Bounds().Dy())
}
