package coordinate

import (
	"math"
	"testing"
)

func testView() View {
	return View{
		CanvasWidth:    1000,
		CanvasHeight:   500,
		Duration:       100,
		StartFrequency: 0,
		FrequencyRange: 1000,
		Zoom:           1,
	}
}

func TestPixelTimeRoundTrip(t *testing.T) {
	v := testView()
	// One pixel covers Duration/(CanvasWidth*Zoom) seconds.
	pxResolution := v.Duration / (float64(v.CanvasWidth) * float64(v.Zoom))
	for _, tm := range []float64{0, 0.05, 1, 33.33, 99.9, 100} {
		got := v.PixelToTime(v.TimeToPixel(tm))
		if math.Abs(got-tm) > pxResolution {
			t.Errorf("round trip for t=%v: got %v (resolution %v)", tm, got, pxResolution)
		}
	}
}

func TestPixelToTimeMonotonic(t *testing.T) {
	v := testView()
	v.Zoom = 4
	v.ScrollPx = 1200
	prev := math.Inf(-1)
	for x := -50.0; x <= 1050; x += 7 {
		got := v.PixelToTime(x)
		if got < prev {
			t.Fatalf("PixelToTime not monotonic at x=%v: %v < %v", x, got, prev)
		}
		prev = got
	}
}

func TestPixelToTimeClamps(t *testing.T) {
	v := testView()
	if got := v.PixelToTime(-100); got != 0 {
		t.Errorf("left clamp: got %v, want 0", got)
	}
	if got := v.PixelToTime(5000); got != 100 {
		t.Errorf("right clamp: got %v, want 100", got)
	}
}

func TestPixelToFrequencyInverted(t *testing.T) {
	v := testView()
	v.StartFrequency = 200
	v.FrequencyRange = 800

	if got := v.PixelToFrequency(0); got != 1000 {
		t.Errorf("row 0 should be max frequency: got %v, want 1000", got)
	}
	if got := v.PixelToFrequency(500); got != 200 {
		t.Errorf("bottom row should be start frequency: got %v, want 200", got)
	}

	prev := math.Inf(1)
	for y := -20.0; y <= 520; y += 13 {
		got := v.PixelToFrequency(y)
		if got > prev {
			t.Fatalf("PixelToFrequency not decreasing at y=%v: %v > %v", y, got, prev)
		}
		prev = got
	}
}

func TestFrequencyRoundTrip(t *testing.T) {
	v := testView()
	v.StartFrequency = 100
	v.FrequencyRange = 900
	for _, f := range []float64{100, 150, 500, 999, 1000} {
		got := v.PixelToFrequency(v.FrequencyToPixel(f))
		if math.Abs(got-f) > 1e-9 {
			t.Errorf("frequency round trip for f=%v: got %v", f, got)
		}
	}
}

func TestZoomMultipliesTimePxRatio(t *testing.T) {
	v := testView()
	base := v.TimePxRatio()
	v.Zoom = 8
	if got := v.TimePxRatio(); got != base*8 {
		t.Errorf("TimePxRatio at zoom 8: got %v, want %v", got, base*8)
	}
}

func TestZoomAroundKeepsAnchorStationary(t *testing.T) {
	v := testView()
	v.Zoom = 2
	v.ScrollPx = 300

	anchorX := 420.0
	tAtAnchor := v.PixelToTime(anchorX)

	nv := v.ZoomAround(4, anchorX)
	if got := nv.PixelToTime(anchorX); math.Abs(got-tAtAnchor) > 1e-9 {
		t.Errorf("anchor moved: time at x=%v was %v, now %v", anchorX, tAtAnchor, got)
	}
}

func TestZoomAtTimeKeepsCursorStationary(t *testing.T) {
	v := testView()
	v.Zoom = 2
	v.ScrollPx = 500

	cursor := 60.0
	xBefore := v.TimeToPixel(cursor)
	if xBefore < 0 || xBefore > float64(v.CanvasWidth) {
		t.Fatalf("test setup: cursor not visible (x=%v)", xBefore)
	}

	nv := v.ZoomAtTime(4, cursor)
	if got := nv.TimeToPixel(cursor); math.Abs(got-xBefore) > 1e-9 {
		t.Errorf("cursor moved: x was %v, now %v", xBefore, got)
	}
}

func TestZoomAroundClampsScroll(t *testing.T) {
	v := testView()
	v.Zoom = 4
	v.ScrollPx = v.MaxScrollPx()

	nv := v.ZoomAround(1, 990)
	if nv.ScrollPx != 0 {
		t.Errorf("zoom out to 1 should clamp scroll to 0, got %v", nv.ScrollPx)
	}
	if nv.ScrollPx > nv.MaxScrollPx() {
		t.Errorf("scroll %v exceeds max %v", nv.ScrollPx, nv.MaxScrollPx())
	}
}
