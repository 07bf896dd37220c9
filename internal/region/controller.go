// Package region turns raw pointer event sequences into annotation
// gestures: a click (seek or select) or a drag-to-create rectangle.
package region

import (
	"math"

	"github.com/pelagiclabs/annotator/internal/coordinate"
)

// DragThresholdPx is the cumulative pointer movement, in pixels, past which
// a pointer-down/up sequence counts as a drag instead of a click.
const DragThresholdPx = 2.0

// Rect is a candidate annotation rectangle in domain units. StartTime <
// EndTime and StartFrequency < EndFrequency regardless of drag direction.
type Rect struct {
	StartTime      float64
	EndTime        float64
	StartFrequency float64
	EndFrequency   float64
}

// GestureKind discriminates the outcome of a pointer-up.
type GestureKind int

const (
	// GestureNone: the controller was not dragging (e.g. pointer-up without
	// a preceding down, or down was refused).
	GestureNone GestureKind = iota
	// GestureClick: movement stayed under the threshold. Time/Frequency
	// carry the click position for seek-or-select.
	GestureClick
	// GestureDrag: the candidate rectangle should be committed.
	GestureDrag
)

// Gesture is the result of completing a pointer sequence.
type Gesture struct {
	Kind      GestureKind
	Time      float64
	Frequency float64
	Rect      Rect
}

// Controller is the Idle -> Dragging -> Idle pointer state machine. While a
// drag is active the controller consumes every pointer event, wherever it
// lands: the session registers it as the document-level listener for the
// duration of the drag and detaches it on pointer-up or teardown.
type Controller struct {
	dragging  bool
	startX    float64
	startY    float64
	startTime float64
	startFreq float64
	movement  float64
	lastX     float64
	lastY     float64
	exceeded  bool
	candidate *Rect
}

func NewController() *Controller {
	return &Controller{}
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	return c.dragging
}

// Candidate returns the provisional rectangle being dragged out, or nil
// while movement is still below the threshold. The renderer draws it as the
// in-progress annotation outline.
func (c *Controller) Candidate() *Rect {
	return c.candidate
}

// Down starts a pointer sequence at canvas offset (x, y). allowed gates
// creation by regime: always true in box mode, true in whole-file mode only
// when a label is currently selected. Returns whether the controller
// transitioned to Dragging.
func (c *Controller) Down(view coordinate.View, x, y float64, allowed bool) bool {
	if !allowed {
		return false
	}
	c.dragging = true
	c.startX, c.startY = x, y
	c.lastX, c.lastY = x, y
	c.startTime = view.PixelToTime(x)
	c.startFreq = view.PixelToFrequency(y)
	c.movement = 0
	c.exceeded = false
	c.candidate = nil
	return true
}

// Move feeds a pointer position while the button is held. Once cumulative
// movement exceeds the threshold the candidate rectangle is recomputed as
// the min/max envelope of the start point and the current point, so the
// user may drag in any of the four directions.
func (c *Controller) Move(view coordinate.View, x, y float64) {
	if !c.dragging {
		return
	}
	c.movement += math.Abs(x-c.lastX) + math.Abs(y-c.lastY)
	c.lastX, c.lastY = x, y
	if c.movement <= DragThresholdPx {
		return
	}
	c.exceeded = true
	t := view.PixelToTime(x)
	f := view.PixelToFrequency(y)
	c.candidate = &Rect{
		StartTime:      math.Min(c.startTime, t),
		EndTime:        math.Max(c.startTime, t),
		StartFrequency: math.Min(c.startFreq, f),
		EndFrequency:   math.Max(c.startFreq, f),
	}
}

// Up completes the sequence. Below the threshold the gesture is a click;
// above it the final candidate rectangle is returned for commit. The
// controller returns to Idle either way.
func (c *Controller) Up(view coordinate.View, x, y float64) Gesture {
	if !c.dragging {
		return Gesture{Kind: GestureNone}
	}
	c.Move(view, x, y)
	g := Gesture{Kind: GestureClick, Time: view.PixelToTime(x), Frequency: view.PixelToFrequency(y)}
	if c.exceeded && c.candidate != nil {
		g = Gesture{Kind: GestureDrag, Rect: *c.candidate}
	}
	c.reset()
	return g
}

// Cancel aborts any in-progress drag, e.g. on task navigation or teardown.
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) reset() {
	c.dragging = false
	c.exceeded = false
	c.movement = 0
	c.candidate = nil
}
