package render

import (
	"image"
	"testing"

	"github.com/pelagiclabs/annotator/internal/coordinate"
	"github.com/pelagiclabs/annotator/internal/region"
	"github.com/pelagiclabs/annotator/internal/spectrogram"
)

// testView: 10 px/s, 1 px/Hz.
func testView() coordinate.View {
	return coordinate.View{
		CanvasWidth:    100,
		CanvasHeight:   50,
		Duration:       10,
		StartFrequency: 0,
		FrequencyRange: 50,
		Zoom:           1,
	}
}

func TestTimeSteps(t *testing.T) {
	tests := []struct {
		visible       float64
		step, bigStep float64
	}{
		{3, 0.2, 1},
		{20, 1, 5},
		{100, 2, 10},
		{500, 10, 60},
		{1800, 60, 300},
		{7200, 300, 1800},
	}
	for _, tt := range tests {
		step, big := TimeSteps(tt.visible)
		if step != tt.step || big != tt.bigStep {
			t.Errorf("TimeSteps(%v) = (%v, %v), want (%v, %v)", tt.visible, step, big, tt.step, tt.bigStep)
		}
	}
}

func TestFreqSteps(t *testing.T) {
	tests := []struct {
		rng           float64
		step, bigStep float64
	}{
		{150, 5, 25},
		{800, 25, 100},
		{22050, 2000, 10000},
	}
	for _, tt := range tests {
		step, big := FreqSteps(tt.rng)
		if step != tt.step || big != tt.bigStep {
			t.Errorf("FreqSteps(%v) = (%v, %v), want (%v, %v)", tt.rng, step, big, tt.step, tt.bigStep)
		}
	}
}

func TestCanvasPlaybackCursor(t *testing.T) {
	dst := Canvas(Frame{View: testView(), PlaybackTime: 5})

	if got := dst.RGBAAt(50, 10); got != playbackInk {
		t.Errorf("pixel at cursor column = %v, want %v", got, playbackInk)
	}
	if got := dst.RGBAAt(51, 10); got != canvasBackground {
		t.Errorf("pixel next to cursor = %v, want background", got)
	}
}

func TestCanvasProvisionalOutline(t *testing.T) {
	dst := Canvas(Frame{
		View: testView(),
		Provisional: &region.Rect{
			StartTime: 2, EndTime: 4,
			StartFrequency: 10, EndFrequency: 30,
		},
	})

	// Time 2..4 maps to x 20..40, frequency 10..30 to y 40..20 (inverted).
	if got := dst.RGBAAt(20, 30); got != provisionalInk {
		t.Errorf("left edge pixel = %v, want %v", got, provisionalInk)
	}
	if got := dst.RGBAAt(30, 20); got != provisionalInk {
		t.Errorf("top edge pixel = %v, want %v", got, provisionalInk)
	}
	if got := dst.RGBAAt(30, 30); got != canvasBackground {
		t.Errorf("interior pixel = %v, want background", got)
	}
}

func TestCanvasActiveBoxInk(t *testing.T) {
	dst := Canvas(Frame{
		View: testView(),
		Boxes: []Box{
			{StartTime: 1, EndTime: 3, StartFrequency: 5, EndFrequency: 15, Active: true},
			{StartTime: 6, EndTime: 8, StartFrequency: 5, EndFrequency: 15},
		},
	})

	if got := dst.RGBAAt(10, 40); got != activeRegionInk {
		t.Errorf("active box edge = %v, want %v", got, activeRegionInk)
	}
	if got := dst.RGBAAt(60, 40); got != regionInk {
		t.Errorf("inactive box edge = %v, want %v", got, regionInk)
	}
}

func TestCanvasTilePlacement(t *testing.T) {
	green := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			green.Set(x, y, regionInk)
		}
	}
	dst := Canvas(Frame{
		View:  testView(),
		Tiles: []spectrogram.RenderTile{{Start: 0, End: 5, Image: green}},
	})

	if got := dst.RGBAAt(10, 25); got != regionInk {
		t.Errorf("pixel inside tile = %v, want tile color", got)
	}
	if got := dst.RGBAAt(60, 25); got != canvasBackground {
		t.Errorf("pixel outside tile = %v, want background", got)
	}
}

func TestSnapshotLayout(t *testing.T) {
	v := testView()
	dst := Snapshot(Frame{View: v, PlaybackTime: 5})

	b := dst.Bounds()
	if b.Dx() != FreqAxisWidth+v.CanvasWidth || b.Dy() != v.CanvasHeight+TimeAxisHeight {
		t.Fatalf("snapshot bounds = %v", b)
	}
	// The playback cursor shows through at the axis offset.
	if got := dst.RGBAAt(FreqAxisWidth+50, 10); got != playbackInk {
		t.Errorf("cursor pixel in snapshot = %v, want %v", got, playbackInk)
	}
}
