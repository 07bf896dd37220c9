package region

import (
	"math"
	"testing"

	"github.com/pelagiclabs/annotator/internal/coordinate"
)

// testView: timePxRatio = 10 px/s, freqPxRatio = 1 px/Hz.
func testView() coordinate.View {
	return coordinate.View{
		CanvasWidth:    1000,
		CanvasHeight:   1000,
		Duration:       100,
		StartFrequency: 0,
		FrequencyRange: 1000,
		Zoom:           1,
	}
}

func TestClickBelowThreshold(t *testing.T) {
	v := testView()
	c := NewController()

	if !c.Down(v, 100, 500, true) {
		t.Fatal("Down refused")
	}
	c.Move(v, 101, 500) // 1px of movement, under threshold
	g := c.Up(v, 101, 500)

	if g.Kind != GestureClick {
		t.Fatalf("gesture = %v, want click", g.Kind)
	}
	if math.Abs(g.Time-10.1) > 1e-9 {
		t.Errorf("click time = %v, want 10.1", g.Time)
	}
	if c.Dragging() {
		t.Error("controller should be idle after up")
	}
}

func TestDragCreatesCandidate(t *testing.T) {
	v := testView()
	c := NewController()

	c.Down(v, 10, 10, true)
	c.Move(v, 30, 30)
	if c.Candidate() == nil {
		t.Fatal("candidate should exist past the threshold")
	}
	g := c.Up(v, 50, 50)

	if g.Kind != GestureDrag {
		t.Fatalf("gesture = %v, want drag", g.Kind)
	}
	// timePxRatio = 10 px/s: pixels 10 and 50 are 1.0s and 5.0s.
	if math.Abs(g.Rect.StartTime-1.0) > 1e-9 || math.Abs(g.Rect.EndTime-5.0) > 1e-9 {
		t.Errorf("time extent [%v,%v], want [1,5]", g.Rect.StartTime, g.Rect.EndTime)
	}
	// freqPxRatio = 1 px/Hz with inverted axis: y=10 -> 990 Hz, y=50 -> 950 Hz.
	if math.Abs(g.Rect.StartFrequency-950) > 1e-9 || math.Abs(g.Rect.EndFrequency-990) > 1e-9 {
		t.Errorf("frequency extent [%v,%v], want [950,990]", g.Rect.StartFrequency, g.Rect.EndFrequency)
	}
}

func TestDragInAnyDirection(t *testing.T) {
	v := testView()
	tests := []struct {
		name           string
		x0, y0, x1, y1 float64
	}{
		{"down-right", 100, 100, 200, 300},
		{"up-left", 200, 300, 100, 100},
		{"down-left", 200, 100, 100, 300},
		{"up-right", 100, 300, 200, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.Down(v, tt.x0, tt.y0, true)
			c.Move(v, tt.x1, tt.y1)
			g := c.Up(v, tt.x1, tt.y1)
			if g.Kind != GestureDrag {
				t.Fatalf("gesture = %v, want drag", g.Kind)
			}
			if g.Rect.StartTime != 10 || g.Rect.EndTime != 20 {
				t.Errorf("time extent [%v,%v], want [10,20]", g.Rect.StartTime, g.Rect.EndTime)
			}
			if g.Rect.StartFrequency != 700 || g.Rect.EndFrequency != 900 {
				t.Errorf("frequency extent [%v,%v], want [700,900]", g.Rect.StartFrequency, g.Rect.EndFrequency)
			}
		})
	}
}

func TestDownRefusedWithoutSelectedLabel(t *testing.T) {
	v := testView()
	c := NewController()

	if c.Down(v, 10, 10, false) {
		t.Fatal("Down should be refused when the regime forbids creation")
	}
	c.Move(v, 50, 50)
	g := c.Up(v, 50, 50)
	if g.Kind != GestureNone {
		t.Fatalf("gesture = %v, want none", g.Kind)
	}
}

func TestReleaseOutsideCanvasClampsToEdge(t *testing.T) {
	v := testView()
	c := NewController()

	c.Down(v, 900, 500, true)
	c.Move(v, 1500, -50) // pointer left the canvas mid-drag
	g := c.Up(v, 1500, -50)

	if g.Kind != GestureDrag {
		t.Fatalf("gesture = %v, want drag", g.Kind)
	}
	if g.Rect.EndTime != 100 {
		t.Errorf("end time = %v, want clamp to 100", g.Rect.EndTime)
	}
	if g.Rect.EndFrequency != 1000 {
		t.Errorf("end frequency = %v, want clamp to 1000", g.Rect.EndFrequency)
	}
}

func TestCancelAbortsDrag(t *testing.T) {
	v := testView()
	c := NewController()

	c.Down(v, 10, 10, true)
	c.Move(v, 80, 80)
	c.Cancel()

	if c.Dragging() || c.Candidate() != nil {
		t.Error("cancel should fully reset the controller")
	}
	if g := c.Up(v, 90, 90); g.Kind != GestureNone {
		t.Errorf("gesture after cancel = %v, want none", g.Kind)
	}
}
