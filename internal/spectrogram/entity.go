package spectrogram

import "image"

// Analysis identifies one pre-generated spectrogram rendition by its FFT
// parameters.
type Analysis struct {
	NFFT    int `yaml:"nfft"`
	WinSize int `yaml:"winsize"`
	Overlap int `yaml:"overlap"`
}

// Tile is one image covering a time sub-range [Start,End) of the full
// duration at a given zoom level. Image stays nil until the progressive
// loader has fetched and decoded it.
type Tile struct {
	Index int
	Start float64
	End   float64
	URL   string

	Image  image.Image
	Failed bool
}

// Level groups the ordered tiles of one power-of-two zoom level.
type Level struct {
	Zoom  int
	Tiles []*Tile
}

// Ready reports whether every tile of the level has a decoded image.
func (l *Level) Ready() bool {
	for _, t := range l.Tiles {
		if t.Image == nil {
			return false
		}
	}
	return true
}

// Rendition is the tile pyramid of one analysis configuration: an ordered
// list of levels with zoom factors 1, 2, 4, ...
type Rendition struct {
	Analysis Analysis
	Levels   []*Level
}

// Level returns the level with the given zoom factor, or nil.
func (r *Rendition) Level(zoom int) *Level {
	for _, l := range r.Levels {
		if l.Zoom == zoom {
			return l
		}
	}
	return nil
}

// MaxZoom is the finest available zoom factor.
func (r *Rendition) MaxZoom() int {
	if len(r.Levels) == 0 {
		return 1
	}
	return r.Levels[len(r.Levels)-1].Zoom
}

// ZoomLevels lists the available zoom factors in ascending order.
func (r *Rendition) ZoomLevels() []int {
	zooms := make([]int, len(r.Levels))
	for i, l := range r.Levels {
		zooms[i] = l.Zoom
	}
	return zooms
}
