// Package raster draws chart operations onto an RGBA image and encodes it as
// PNG.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
)

// ErrBadColor is returned for colours that are not "#rgb" or "#rrggbb".
var ErrBadColor = errors.New("bad colour")

// Draw paints ops in order onto a new width x height image filled with
// background.
func Draw(ops []chart.Op, width, height int, background string) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image size %dx%d", width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg, err := parseColor(background)
	if err != nil {
		return nil, err
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, fmt.Errorf("graphic context: %w", err)
	}

	for i, op := range ops {
		if err := drawOp(gc, img, op); err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
	}
	return img, nil
}

// DrawFrame paints a complete frame.
func DrawFrame(f chart.Frame) (*image.RGBA, error) {
	return Draw(f.Ops, f.Width, f.Height, f.Background)
}

// EncodePNG draws f and writes it to w as PNG.
func EncodePNG(w io.Writer, f chart.Frame) error {
	img, err := DrawFrame(f)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func drawOp(gc *drawing.RasterGraphicContext, img *image.RGBA, op chart.Op) error {
	st := op.Style
	switch op.Kind {
	case chart.OpLine, chart.OpPolyline:
		if len(op.Points) < 2 || st.Stroke == "" {
			return nil
		}
		c, err := parseColor(st.Stroke)
		if err != nil {
			return err
		}
		gc.SetStrokeColor(c)
		gc.SetLineWidth(lineWidth(st.Width))
		gc.SetLineDash(st.Dash, 0)
		gc.BeginPath()
		gc.MoveTo(op.Points[0].X, op.Points[0].Y)
		for _, p := range op.Points[1:] {
			gc.LineTo(p.X, p.Y)
		}
		gc.Stroke()
		gc.SetLineDash(nil, 0)

	case chart.OpRect:
		if st.Fill != "" {
			c, err := parseColor(st.Fill)
			if err != nil {
				return err
			}
			gc.SetFillColor(c)
			rectPath(gc, op)
			gc.Fill()
		}
		if st.Stroke != "" {
			c, err := parseColor(st.Stroke)
			if err != nil {
				return err
			}
			gc.SetStrokeColor(c)
			gc.SetLineWidth(lineWidth(st.Width))
			gc.SetLineDash(st.Dash, 0)
			rectPath(gc, op)
			gc.Stroke()
			gc.SetLineDash(nil, 0)
		}

	case chart.OpText:
		fill := st.Fill
		if fill == "" {
			fill = "#000000"
		}
		c, err := parseColor(fill)
		if err != nil {
			return err
		}
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.Point26_6{X: fixed.I(int(op.X + 0.5)), Y: fixed.I(int(op.Y + 0.5))},
		}
		d.DrawString(op.Text)

	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
	return nil
}

func rectPath(gc *drawing.RasterGraphicContext, op chart.Op) {
	gc.BeginPath()
	gc.MoveTo(op.X, op.Y)
	gc.LineTo(op.X+op.W, op.Y)
	gc.LineTo(op.X+op.W, op.Y+op.H)
	gc.LineTo(op.X, op.Y+op.H)
	gc.Close()
}

func lineWidth(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

func parseColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if (len(hex) != 3 && len(hex) != 6) || len(hex) == len(s) {
		return nil, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return nil, fmt.Errorf("%w: %q", ErrBadColor, s)
		}
	}
	return drawing.ColorFromHex(hex), nil
}
