package spectrogram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/pelagiclabs/annotator/internal/eventbus"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 2, 2))
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// recordingFetcher serves a fixed PNG for every URL and records fetch order.
type recordingFetcher struct {
	mu      sync.Mutex
	data    []byte
	fetched []string
	failURL string
}

func (f *recordingFetcher) Fetch(_ context.Context, tileURL string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, tileURL)
	f.mu.Unlock()
	if f.failURL != "" && tileURL == f.failURL {
		return nil, fmt.Errorf("boom")
	}
	return f.data, nil
}

func (f *recordingFetcher) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func TestLoaderProgressiveOrder(t *testing.T) {
	r, err := BuildRendition(Analysis{}, tileURLs("prog", 7), 100)
	if err != nil {
		t.Fatalf("BuildRendition: %v", err)
	}
	fetcher := &recordingFetcher{data: testPNG(t)}
	l := NewLoader(fetcher, eventbus.New())

	l.Start(context.Background(), r, "sess1")
	l.Wait()

	order := fetcher.order()
	if len(order) != 7 {
		t.Fatalf("fetched %d tiles, want 7", len(order))
	}
	// No tile of level n+1 may be requested before every tile of level n.
	seen := map[int]int{}
	for _, u := range order {
		switch {
		case strings.Contains(u, "_1_"):
			seen[1]++
		case strings.Contains(u, "_2_"):
			if seen[1] < 1 {
				t.Fatalf("level 2 tile %s requested before level 1 finished", u)
			}
			seen[2]++
		case strings.Contains(u, "_4_"):
			if seen[2] < 2 {
				t.Fatalf("level 4 tile %s requested before level 2 finished", u)
			}
			seen[4]++
		}
	}

	for _, zoom := range []int{1, 2, 4} {
		if got := l.DisplayLevel(zoom); got != zoom {
			t.Errorf("DisplayLevel(%d) = %d after full load", zoom, got)
		}
	}
}

func TestLoaderFailedTileStopsProgression(t *testing.T) {
	r, err := BuildRendition(Analysis{}, tileURLs("fail", 7), 100)
	if err != nil {
		t.Fatalf("BuildRendition: %v", err)
	}
	fetcher := &recordingFetcher{
		data:    testPNG(t),
		failURL: r.Level(2).Tiles[1].URL,
	}
	l := NewLoader(fetcher, eventbus.New())

	l.Start(context.Background(), r, "sess1")
	l.Wait()

	// Level 1 is ready; level 2 never becomes ready; level 4 is never requested.
	if got := l.DisplayLevel(1); got != 1 {
		t.Errorf("DisplayLevel(1) = %d, want 1", got)
	}
	if got := l.DisplayLevel(4); got != 1 {
		t.Errorf("DisplayLevel(4) = %d, want graceful fallback to 1", got)
	}
	for _, u := range fetcher.order() {
		if strings.Contains(u, "_4_") {
			t.Fatalf("level 4 tile %s requested despite level 2 failure", u)
		}
	}
}

func TestLoaderDisplayLevelLagsRequestedZoom(t *testing.T) {
	r, err := BuildRendition(Analysis{}, tileURLs("lag", 3), 100)
	if err != nil {
		t.Fatalf("BuildRendition: %v", err)
	}
	l := NewLoader(&recordingFetcher{data: testPNG(t)}, eventbus.New())
	if got := l.DisplayLevel(2); got != 0 {
		t.Errorf("DisplayLevel before any load = %d, want 0", got)
	}

	l.Start(context.Background(), r, "sess1")
	l.Wait()

	zoom, tiles := l.DisplayTiles(8)
	if zoom != 2 {
		t.Errorf("DisplayTiles(8) zoom = %d, want finest ready level 2", zoom)
	}
	if len(tiles) != 2 {
		t.Errorf("DisplayTiles(8) returned %d tiles, want 2", len(tiles))
	}
	for _, tile := range tiles {
		if tile.Image == nil {
			t.Error("snapshot tile without image")
		}
	}
}

func TestLoaderStaleRunCannotMarkNewRenditionReady(t *testing.T) {
	r1, _ := BuildRendition(Analysis{NFFT: 1024}, tileURLs("old", 7), 100)
	r2, _ := BuildRendition(Analysis{NFFT: 4096}, tileURLs("new", 1), 100)
	fetcher := &recordingFetcher{data: testPNG(t)}
	l := NewLoader(fetcher, eventbus.New())

	l.Start(context.Background(), r2, "sess1")
	l.Wait()
	if got := l.DisplayLevel(4); got != 1 {
		t.Fatalf("DisplayLevel(4) = %d, want 1 for the single-tile rendition", got)
	}

	// A straggler from a superseded run may finish a level after the switch.
	// It must not be able to flag its level in the new run's ready map.
	if l.loadLevel(context.Background(), r1, r1.Level(4), "sess1") {
		t.Fatal("stale run reported its level as ready")
	}
	if got := l.DisplayLevel(4); got != 1 {
		t.Errorf("DisplayLevel(4) = %d after stale completion, want 1", got)
	}
}

func TestLoaderRenditionSwitchRestartsAtLevelOne(t *testing.T) {
	r1, _ := BuildRendition(Analysis{NFFT: 1024}, tileURLs("one", 3), 100)
	r2, _ := BuildRendition(Analysis{NFFT: 4096}, tileURLs("two", 3), 100)
	fetcher := &recordingFetcher{data: testPNG(t)}
	l := NewLoader(fetcher, eventbus.New())

	l.Start(context.Background(), r1, "sess1")
	l.Wait()
	if got := l.DisplayLevel(2); got != 2 {
		t.Fatalf("rendition 1 not fully loaded: DisplayLevel(2) = %d", got)
	}

	l.Start(context.Background(), r2, "sess1")
	// Readiness must reset immediately on switch: polling DisplayLevel here
	// may observe the new rendition's own progress, but never r1's levels.
	l.Wait()

	zoom, tiles := l.DisplayTiles(2)
	if zoom != 2 {
		t.Fatalf("rendition 2 not loaded: zoom = %d", zoom)
	}
	for _, tile := range tiles {
		if tile.Image == nil {
			t.Error("rendition 2 tile missing image")
		}
	}
	var sawTwo bool
	for _, u := range fetcher.order() {
		if strings.Contains(u, "two_1_0") {
			sawTwo = true
		}
	}
	if !sawTwo {
		t.Error("rendition 2 did not restart at zoom level 1")
	}
}
