// Package render composites the workbench canvas: spectrogram tiles scaled
// to the viewport, annotation outlines, the in-progress drag rectangle, the
// playback cursor, and the time/frequency axes.
package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pelagiclabs/annotator/internal/coordinate"
	"github.com/pelagiclabs/annotator/internal/region"
	"github.com/pelagiclabs/annotator/internal/spectrogram"
)

var (
	canvasBackground = color.RGBA{R: 0x11, G: 0x11, B: 0x16, A: 0xff}
	playbackInk      = color.RGBA{R: 0xe5, G: 0x3e, B: 0x3e, A: 0xff}
	provisionalInk   = color.RGBA{R: 0xf0, G: 0xc0, B: 0x30, A: 0xff}
	regionInk        = color.RGBA{R: 0x3e, G: 0x8e, B: 0xe5, A: 0xff}
	activeRegionInk  = color.RGBA{R: 0x5e, G: 0xe5, B: 0x8e, A: 0xff}
)

// Box is a committed annotation rectangle to outline on the canvas. Whole
// file tags have no rectangle and are not drawn here.
type Box struct {
	StartTime      float64
	EndTime        float64
	StartFrequency float64
	EndFrequency   float64
	Label          string
	Active         bool
}

// Frame is everything needed to draw one canvas image.
type Frame struct {
	View         coordinate.View
	Tiles        []spectrogram.RenderTile
	PlaybackTime float64
	Provisional  *region.Rect
	Boxes        []Box
}

// Canvas draws the viewport-sized canvas image: tiles, committed box
// outlines, the provisional drag rectangle, then the playback cursor on top.
func Canvas(f Frame) *image.RGBA {
	v := f.View
	dst := image.NewRGBA(image.Rect(0, 0, v.CanvasWidth, v.CanvasHeight))
	fill(dst, canvasBackground)

	for _, t := range f.Tiles {
		drawTile(dst, v, t)
	}
	for _, b := range f.Boxes {
		ink := regionInk
		if b.Active {
			ink = activeRegionInk
		}
		drawOutline(dst, v, b.StartTime, b.EndTime, b.StartFrequency, b.EndFrequency, ink)
		if b.Label != "" {
			x := int(math.Round(v.TimeToPixel(b.StartTime)))
			y := int(math.Round(v.FrequencyToPixel(b.EndFrequency)))
			drawBoxLabel(dst, x+3, y-3, b.Label, ink)
		}
	}
	if f.Provisional != nil {
		p := f.Provisional
		drawOutline(dst, v, p.StartTime, p.EndTime, p.StartFrequency, p.EndFrequency, provisionalInk)
	}
	drawPlaybackCursor(dst, v, f.PlaybackTime)
	return dst
}

// Snapshot composites the canvas with the frequency axis on the left and the
// time axis below, matching the on-screen workbench layout.
func Snapshot(f Frame) *image.RGBA {
	v := f.View
	canvas := Canvas(f)
	freqAxis := RenderFrequencyAxis(v)
	timeAxis := RenderTimeAxis(v)

	out := image.NewRGBA(image.Rect(0, 0, FreqAxisWidth+v.CanvasWidth, v.CanvasHeight+TimeAxisHeight))
	fill(out, axisBackground)
	xdraw.Draw(out, freqAxis.Bounds(), freqAxis, image.Point{}, xdraw.Src)
	xdraw.Draw(out, canvas.Bounds().Add(image.Pt(FreqAxisWidth, 0)), canvas, image.Point{}, xdraw.Src)
	xdraw.Draw(out, timeAxis.Bounds().Add(image.Pt(FreqAxisWidth, v.CanvasHeight)), timeAxis, image.Point{}, xdraw.Src)
	return out
}

func drawTile(dst *image.RGBA, v coordinate.View, t spectrogram.RenderTile) {
	if t.Image == nil {
		return
	}
	x0 := int(math.Round(v.TimeToPixel(t.Start)))
	x1 := int(math.Round(v.TimeToPixel(t.End)))
	if x1 <= 0 || x0 >= v.CanvasWidth || x1 <= x0 {
		return
	}
	dr := image.Rect(x0, 0, x1, v.CanvasHeight)
	xdraw.ApproxBiLinear.Scale(dst, dr, t.Image, t.Image.Bounds(), xdraw.Src, nil)
}

func drawPlaybackCursor(dst *image.RGBA, v coordinate.View, t float64) {
	x := int(math.Round(v.TimeToPixel(t)))
	if x < 0 || x >= v.CanvasWidth {
		return
	}
	vline(dst, x, 0, v.CanvasHeight, playbackInk)
}

func drawOutline(dst *image.RGBA, v coordinate.View, t0, t1, f0, f1 float64, ink color.Color) {
	x0 := int(math.Round(v.TimeToPixel(t0)))
	x1 := int(math.Round(v.TimeToPixel(t1)))
	// Frequency axis is inverted: the higher frequency is the upper edge.
	y0 := int(math.Round(v.FrequencyToPixel(f1)))
	y1 := int(math.Round(v.FrequencyToPixel(f0)))
	hline(dst, x0, x1+1, y0, ink)
	hline(dst, x0, x1+1, y1, ink)
	vline(dst, x0, y0, y1+1, ink)
	vline(dst, x1, y0, y1+1, ink)
}

func drawBoxLabel(dst *image.RGBA, x, y int, text string, ink color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func fill(dst *image.RGBA, c color.Color) {
	b := dst.Bounds()
	xdraw.Draw(dst, b, image.NewUniform(c), image.Point{}, xdraw.Src)
}

func hline(dst *image.RGBA, x0, x1, y int, c color.Color) {
	b := dst.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	for x := x0; x < x1; x++ {
		dst.Set(x, y, c)
	}
}

func vline(dst *image.RGBA, x, y0, y1 int, c color.Color) {
	b := dst.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	for y := y0; y < y1; y++ {
		dst.Set(x, y, c)
	}
}
