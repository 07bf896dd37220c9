package spectrogram

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"strconv"
	"sync"

	// Tile sets are pre-generated as PNG, with some older campaigns on JPEG.
	_ "image/jpeg"
	_ "image/png"

	"github.com/sourcegraph/conc/pool"

	"github.com/pelagiclabs/annotator/internal/eventbus"
	"github.com/pelagiclabs/annotator/pkg/panicerr"
)

// Loader drives the progressive load of a rendition's tile pyramid: zoom
// level 1 first, each finer level only once every tile of the current level
// has decoded. A tile that fails leaves its level permanently un-ready; the
// display simply keeps using the coarser level below it.
type Loader struct {
	fetcher Fetcher
	bus     *eventbus.Bus

	mu        sync.Mutex
	cancel    context.CancelFunc
	rendition *Rendition
	ready     map[int]bool
	done      chan struct{} // closed when the current progressive run ends
}

func NewLoader(fetcher Fetcher, bus *eventbus.Bus) *Loader {
	return &Loader{
		fetcher: fetcher,
		bus:     bus,
		ready:   map[int]bool{},
	}
}

// Start switches the loader to a rendition and begins progressive loading at
// zoom level 1. Any in-flight load for a previous rendition is cancelled.
func (l *Loader) Start(ctx context.Context, r *Rendition, sessionID string) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.rendition = r
	l.ready = map[int]bool{}
	done := make(chan struct{})
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		level := r.Level(1)
		for level != nil {
			if !l.loadLevel(cctx, r, level, sessionID) {
				return
			}
			level = r.Level(level.Zoom * 2)
		}
	}()
}

// Stop cancels any in-flight load.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Wait blocks until the current progressive run finishes. Test hook.
func (l *Loader) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// loadLevel fetches and decodes every tile of one level of rendition r. It
// returns true if the level became ready and the next level should be
// enqueued.
func (l *Loader) loadLevel(ctx context.Context, r *Rendition, level *Level, sessionID string) bool {
	p := pool.New().WithContext(ctx)
	for _, tile := range level.Tiles {
		tile := tile
		p.Go(panicerr.SafeContext(func(ctx context.Context) error {
			data, err := l.fetcher.Fetch(ctx, tile.URL)
			if err != nil {
				l.markFailed(tile, err)
				return nil // a broken tile must not cancel its siblings
			}
			img, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				l.markFailed(tile, err)
				return nil
			}
			l.mu.Lock()
			tile.Image = img
			l.mu.Unlock()
			return nil
		}))
	}
	if err := p.Wait(); err != nil {
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	l.mu.Lock()
	if l.rendition != r {
		// A newer Start replaced the rendition between the cancellation and
		// this point. The ready map belongs to the new run now.
		l.mu.Unlock()
		return false
	}
	ready := level.Ready()
	if ready {
		l.ready[level.Zoom] = true
	}
	l.mu.Unlock()

	if ready {
		l.bus.PublishNew(eventbus.EventTypeTileLevelReady, sessionID, map[string]string{
			"zoom": strconv.Itoa(level.Zoom),
		})
	}
	return ready
}

func (l *Loader) markFailed(tile *Tile, err error) {
	l.mu.Lock()
	tile.Failed = true
	l.mu.Unlock()
	slog.Debug("tile load failed", "url", tile.URL, "error", err)
}

// RenderTile is an immutable snapshot of a loaded tile for the renderer.
type RenderTile struct {
	Start float64
	End   float64
	Image image.Image
}

// DisplayLevel returns the finest fully loaded zoom level that does not
// exceed the requested one, or 0 when nothing is ready yet. The displayed
// level intentionally lags behind the requested zoom while finer tiles are
// still downloading.
func (l *Loader) DisplayLevel(requested int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	best := 0
	for zoom := range l.ready {
		if zoom <= requested && zoom > best {
			best = zoom
		}
	}
	return best
}

// DisplayTiles snapshots the tiles of the finest ready level <= requested.
func (l *Loader) DisplayTiles(requested int) (int, []RenderTile) {
	zoom := l.DisplayLevel(requested)
	if zoom == 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	level := l.rendition.Level(zoom)
	if level == nil {
		return 0, nil
	}
	tiles := make([]RenderTile, 0, len(level.Tiles))
	for _, t := range level.Tiles {
		tiles = append(tiles, RenderTile{Start: t.Start, End: t.End, Image: t.Image})
	}
	return zoom, tiles
}
