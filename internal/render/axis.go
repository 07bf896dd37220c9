package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pelagiclabs/annotator/internal/coordinate"
)

const (
	// TimeAxisHeight is the fixed height of the time axis strip in pixels.
	TimeAxisHeight = 20
	// FreqAxisWidth is the fixed width of the frequency axis strip in pixels.
	FreqAxisWidth = 50

	minorTickLen = 4
	majorTickLen = 8
)

// tickScale selects a minor/major step pair for a given visible extent:
// finer granularity for short windows, coarser for long ones.
type tickScale struct {
	max     float64 // upper bound (exclusive) of the visible extent
	step    float64
	bigStep float64
}

var timeTickScales = []tickScale{
	{5, 0.2, 1},
	{30, 1, 5},
	{120, 2, 10},
	{600, 10, 60},
	{3600, 60, 300},
	{math.MaxFloat64, 300, 1800},
}

var freqTickScales = []tickScale{
	{200, 5, 25},
	{1000, 25, 100},
	{5000, 100, 500},
	{20000, 500, 2000},
	{math.MaxFloat64, 2000, 10000},
}

func pickScale(scales []tickScale, extent float64) (step, bigStep float64) {
	for _, s := range scales {
		if extent < s.max {
			return s.step, s.bigStep
		}
	}
	last := scales[len(scales)-1]
	return last.step, last.bigStep
}

// TimeSteps returns the minor and major tick steps for a visible duration.
func TimeSteps(visibleDuration float64) (step, bigStep float64) {
	return pickScale(timeTickScales, visibleDuration)
}

// FreqSteps returns the minor and major tick steps for a frequency range.
func FreqSteps(frequencyRange float64) (step, bigStep float64) {
	return pickScale(freqTickScales, frequencyRange)
}

var (
	axisBackground = color.RGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	axisInk        = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// RenderTimeAxis draws the horizontal time axis strip for the view. Only
// major steps get a label; minor steps draw a shorter unlabeled mark.
func RenderTimeAxis(view coordinate.View) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, view.CanvasWidth, TimeAxisHeight))
	fill(dst, axisBackground)

	step, bigStep := TimeSteps(view.VisibleDuration())
	left := view.PixelToTime(0)
	right := view.PixelToTime(float64(view.CanvasWidth))
	for t := math.Ceil(left/step) * step; t <= right; t += step {
		x := int(math.Round(view.TimeToPixel(t)))
		if x < 0 || x >= view.CanvasWidth {
			continue
		}
		major := isMultiple(t, bigStep)
		tickLen := minorTickLen
		if major {
			tickLen = majorTickLen
		}
		vline(dst, x, 0, tickLen, axisInk)
		if major {
			drawLabel(dst, x+2, TimeAxisHeight-4, formatTime(t, step))
		}
	}
	return dst
}

// RenderFrequencyAxis draws the vertical frequency axis strip for the view.
func RenderFrequencyAxis(view coordinate.View) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, FreqAxisWidth, view.CanvasHeight))
	fill(dst, axisBackground)

	step, bigStep := FreqSteps(view.FrequencyRange)
	lo := view.StartFrequency
	hi := view.StartFrequency + view.FrequencyRange
	for f := math.Ceil(lo/step) * step; f <= hi; f += step {
		y := int(math.Round(view.FrequencyToPixel(f)))
		if y < 0 || y >= view.CanvasHeight {
			continue
		}
		major := isMultiple(f, bigStep)
		tickLen := minorTickLen
		if major {
			tickLen = majorTickLen
		}
		hline(dst, FreqAxisWidth-tickLen, FreqAxisWidth, y, axisInk)
		if major {
			drawLabel(dst, 2, y+4, formatFrequency(f))
		}
	}
	return dst
}

func isMultiple(v, of float64) bool {
	if of <= 0 {
		return false
	}
	r := math.Mod(math.Abs(v), of)
	return r < 1e-6 || of-r < 1e-6
}

func formatTime(t, step float64) string {
	m := int(t) / 60
	s := t - float64(m*60)
	if step < 1 {
		return fmt.Sprintf("%d:%04.1f", m, s)
	}
	return fmt.Sprintf("%d:%02d", m, int(s))
}

func formatFrequency(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%gk", f/1000)
	}
	return fmt.Sprintf("%g", f)
}

func drawLabel(dst *image.RGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(axisInk),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
