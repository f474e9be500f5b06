// ABOUTME: Raster waveform renderer drawing onto any draw.Image
// ABOUTME: Draws peak columns, the centre line, the selection overlay, the playhead and a time label
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Margin is the vertical gap kept between the tallest peak and the edge
const Margin = 6

var (
	// GradientTop and GradientBottom are the waveform colours
	GradientTop    = color.NRGBA{R: 0x5a, G: 0xd1, B: 0xff, A: 0xff}
	GradientBottom = color.NRGBA{R: 0x1f, G: 0x9c, B: 0xff, A: 0xff}

	glowColor      = color.NRGBA{R: 90, G: 209, B: 255, A: 56}
	midLineColor   = color.NRGBA{R: 90, G: 209, B: 255, A: 38}
	selectionFill  = color.NRGBA{R: 90, G: 209, B: 255, A: 38}
	selectionEdge  = color.NRGBA{R: 90, G: 209, B: 255, A: 128}
	playheadColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 179}
	labelColor     = color.NRGBA{R: 0xe6, G: 0xf4, B: 0xff, A: 0xff}
	transparentBkg = color.NRGBA{}
)

// Renderer draws frames onto raster surfaces
type Renderer struct {
	// Background fills the surface before drawing. The zero value clears to transparent.
	Background color.Color
}

// NewRenderer creates a renderer that clears to transparent
func NewRenderer() *Renderer {
	return &Renderer{Background: transparentBkg}
}

// Render draws frame onto dst. The whole surface is repainted on every call,
// so rendering the same frame twice produces identical pixels.
func (r *Renderer) Render(dst draw.Image, frame Frame) Result {
	bounds := dst.Bounds()
	bg := r.Background
	if bg == nil {
		bg = transparentBkg
	}
	draw.Draw(dst, bounds, image.NewUniform(bg), image.Point{}, draw.Src)

	if len(frame.Samples) == 0 {
		return Result{}
	}

	res := Result{HasWaveform: true}
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 2 || height < 2 {
		return res
	}
	res.Drawn = true

	r.drawPeaks(dst, bounds, frame.Samples)
	r.drawMidLine(dst, bounds)

	if left, right, ok := frame.SelectionSpan(float64(width)); ok {
		res.SelectionVisible = true
		res.SelectionLeft = left
		res.SelectionRight = right
		r.drawSelection(dst, bounds, left, right)
	}

	if x, ok := frame.PlayheadPosition(float64(width)); ok {
		res.PlayheadVisible = true
		res.PlayheadX = x
		col := int(math.Floor(x))
		if col >= width {
			col = width - 1
		}
		fillRect(dst, image.Rect(bounds.Min.X+col, bounds.Min.Y, bounds.Min.X+col+1, bounds.Max.Y), playheadColor)
	}

	if frame.Label != "" {
		drawLabel(dst, bounds, frame.Label)
	}

	return res
}

func (r *Renderer) drawPeaks(dst draw.Image, bounds image.Rectangle, samples []float64) {
	width := bounds.Dx()
	height := bounds.Dy()
	heights := NormalizedHeights(samples, width)
	grad := gradientColumn(height)

	midY := float64(height) / 2
	reach := midY - Margin
	if reach < 0 {
		reach = 0
	}

	for x, h := range heights {
		y1 := int(math.Floor(midY - h*reach))
		y2 := int(math.Ceil(midY + h*reach))
		if y2 <= y1 {
			y2 = y1 + 1
		}
		px := bounds.Min.X + x

		glow := image.Rect(px-1, bounds.Min.Y+y1, px+2, bounds.Min.Y+y2).Intersect(bounds)
		fillRect(dst, glow, glowColor)

		line := image.Rect(px, bounds.Min.Y+y1, px+1, bounds.Min.Y+y2)
		draw.Draw(dst, line, grad, image.Pt(0, y1), draw.Over)
	}
}

func (r *Renderer) drawMidLine(dst draw.Image, bounds image.Rectangle) {
	midY := bounds.Min.Y + bounds.Dy()/2
	fillRect(dst, image.Rect(bounds.Min.X, midY-1, bounds.Max.X, midY+1), midLineColor)
}

func (r *Renderer) drawSelection(dst draw.Image, bounds image.Rectangle, left, right float64) {
	l := bounds.Min.X + int(math.Floor(left))
	rt := bounds.Min.X + int(math.Ceil(right))
	fillRect(dst, image.Rect(l, bounds.Min.Y, rt, bounds.Max.Y), selectionFill)

	fillRect(dst, image.Rect(l, bounds.Min.Y, l+1, bounds.Max.Y), selectionEdge)
	edge := rt
	if edge >= bounds.Max.X {
		edge = bounds.Max.X - 1
	}
	fillRect(dst, image.Rect(edge, bounds.Min.Y, edge+1, bounds.Max.Y), selectionEdge)
}

// gradientColumn builds a 1px wide vertical gradient from GradientTop to GradientBottom
func gradientColumn(height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, height))
	for y := 0; y < height; y++ {
		t := 0.0
		if height > 1 {
			t = float64(y) / float64(height-1)
		}
		img.SetNRGBA(0, y, color.NRGBA{
			R: lerp(GradientTop.R, GradientBottom.R, t),
			G: lerp(GradientTop.G, GradientBottom.G, t),
			B: lerp(GradientTop.B, GradientBottom.B, t),
			A: 0xff,
		})
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func fillRect(dst draw.Image, rect image.Rectangle, c color.Color) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

func drawLabel(dst draw.Image, bounds image.Rectangle, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+Margin, bounds.Min.Y+Margin+face.Ascent),
	}
	d.DrawString(label)
}
