// Package coordinate converts between canvas pixel offsets and the task's
// time/frequency domain. All functions are pure; the View value carries the
// ratios they are parameterized by.
package coordinate

// View describes the visible canvas and the domain bounds of the loaded task.
// The canvas is a fixed-size viewport onto a virtual surface of width
// CanvasWidth*Zoom pixels; ScrollPx is the viewport's left edge on that
// surface.
type View struct {
	CanvasWidth    int
	CanvasHeight   int
	Duration       float64 // full task duration in seconds
	StartFrequency float64 // lowest frequency in Hz
	FrequencyRange float64 // total frequency extent in Hz
	Zoom           int     // power-of-two zoom factor, >= 1
	ScrollPx       float64
}

// TimePxRatio is the number of horizontal pixels per second at the current zoom.
func (v View) TimePxRatio() float64 {
	if v.Duration <= 0 {
		return 0
	}
	return float64(v.CanvasWidth) * float64(v.zoom()) / v.Duration
}

// FreqPxRatio is the number of vertical pixels per Hz.
func (v View) FreqPxRatio() float64 {
	if v.FrequencyRange <= 0 {
		return 0
	}
	return float64(v.CanvasHeight) / v.FrequencyRange
}

// VisibleDuration is the time extent currently shown by the viewport.
func (v View) VisibleDuration() float64 {
	return v.Duration / float64(v.zoom())
}

func (v View) zoom() int {
	if v.Zoom < 1 {
		return 1
	}
	return v.Zoom
}

// PixelToTime maps a canvas x offset to seconds. Out-of-canvas coordinates
// are clamped to the canvas edges, so releasing a drag outside the canvas
// still yields a boundary value instead of extrapolating.
func (v View) PixelToTime(x float64) float64 {
	ratio := v.TimePxRatio()
	if ratio == 0 {
		return 0
	}
	x = clamp(x, 0, float64(v.CanvasWidth))
	return (v.ScrollPx + x) / ratio
}

// TimeToPixel maps seconds to a canvas x offset. The result may lie outside
// [0, CanvasWidth) when t is scrolled out of view.
func (v View) TimeToPixel(t float64) float64 {
	return t*v.TimePxRatio() - v.ScrollPx
}

// PixelToFrequency maps a canvas y offset to Hz. Row 0 is the highest
// frequency: the frequency axis is inverted relative to screen y.
func (v View) PixelToFrequency(y float64) float64 {
	ratio := v.FreqPxRatio()
	if ratio == 0 {
		return v.StartFrequency
	}
	y = clamp(y, 0, float64(v.CanvasHeight))
	return v.StartFrequency + (float64(v.CanvasHeight)-y)/ratio
}

// FrequencyToPixel maps Hz to a canvas y offset (row 0 = max frequency).
func (v View) FrequencyToPixel(f float64) float64 {
	return float64(v.CanvasHeight) - (f-v.StartFrequency)*v.FreqPxRatio()
}

// MaxScrollPx is the largest valid ScrollPx for the current zoom.
func (v View) MaxScrollPx() float64 {
	m := float64(v.CanvasWidth)*float64(v.zoom()) - float64(v.CanvasWidth)
	if m < 0 {
		return 0
	}
	return m
}

// ZoomAround returns a View at the new zoom factor with ScrollPx recomputed
// so that the time under the anchor pixel stays visually stationary. Used for
// wheel zoom, where the anchor is the pointer position.
func (v View) ZoomAround(newZoom int, anchorX float64) View {
	if newZoom < 1 {
		newZoom = 1
	}
	anchorX = clamp(anchorX, 0, float64(v.CanvasWidth))
	t := v.PixelToTime(anchorX)
	nv := v
	nv.Zoom = newZoom
	nv.ScrollPx = clamp(t*nv.TimePxRatio()-anchorX, 0, nv.MaxScrollPx())
	return nv
}

// ZoomAtTime returns a View at the new zoom factor with ScrollPx recomputed
// so that time t stays at its current on-screen position. Used for button
// zoom, where the anchor is the playback cursor.
func (v View) ZoomAtTime(newZoom int, t float64) View {
	anchorX := v.TimeToPixel(t)
	if anchorX < 0 || anchorX > float64(v.CanvasWidth) {
		// Cursor is off screen: center it instead.
		anchorX = float64(v.CanvasWidth) / 2
	}
	if newZoom < 1 {
		newZoom = 1
	}
	nv := v
	nv.Zoom = newZoom
	nv.ScrollPx = clamp(t*nv.TimePxRatio()-anchorX, 0, nv.MaxScrollPx())
	return nv
}

// ScrollTo returns a View scrolled so that time t is the viewport's left edge.
func (v View) ScrollTo(t float64) View {
	nv := v
	nv.ScrollPx = clamp(t*v.TimePxRatio(), 0, v.MaxScrollPx())
	return nv
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
