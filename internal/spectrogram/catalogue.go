package spectrogram

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/pelagiclabs/annotator/pkg/cerr"
)

// tileURLPattern captures the tile naming convention used by the campaign
// service's pre-generation step: <prefix><basename>_<zoom>_<index><ext>.
var tileURLPattern = regexp.MustCompile(`^(.*?)([^/]+)_(\d+)_(\d+)(\.[A-Za-z0-9]+)$`)

// BuildRendition derives the tile pyramid for one analysis configuration
// from the list of pre-generated tile URLs. The first URL encodes the naming
// convention; the count of URLs determines the available zoom levels: powers
// of two 1, 2, 4, ... while the cumulative tile count fits the list.
func BuildRendition(analysis Analysis, urls []string, duration float64) (*Rendition, error) {
	if len(urls) == 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "no tile urls for rendition", nil)
	}
	m := tileURLPattern.FindStringSubmatch(urls[0])
	if m == nil {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("tile url %q does not follow the naming convention", urls[0]), nil)
	}
	prefix, basename, ext := m[1], m[2], m[5]

	r := &Rendition{Analysis: analysis}
	cumulative := 0
	for zoom := 1; cumulative+zoom <= len(urls); zoom *= 2 {
		level := &Level{Zoom: zoom}
		for i := 0; i < zoom; i++ {
			level.Tiles = append(level.Tiles, &Tile{
				Index: i,
				Start: duration * float64(i) / float64(zoom),
				End:   duration * float64(i+1) / float64(zoom),
				URL:   fmt.Sprintf("%s%s_%d_%d%s", prefix, basename, zoom, i, ext),
			})
		}
		r.Levels = append(r.Levels, level)
		cumulative += zoom
	}
	return r, nil
}

// BuildCatalogue builds one rendition per analysis configuration. A
// configuration whose tile URLs do not parse is skipped, not fatal: the
// other renditions stay usable.
func BuildCatalogue(configs []Config, duration float64) []*Rendition {
	renditions := make([]*Rendition, 0, len(configs))
	for _, cfg := range configs {
		r, err := BuildRendition(Analysis{NFFT: cfg.NFFT, WinSize: cfg.WinSize, Overlap: cfg.Overlap}, cfg.URLs, duration)
		if err != nil {
			slog.Warn("skipping spectrogram configuration", "nfft", cfg.NFFT, "winsize", cfg.WinSize, "error", err)
			continue
		}
		renditions = append(renditions, r)
	}
	return renditions
}

// Config is the wire shape of one analysis configuration as delivered by the
// campaign service.
type Config struct {
	NFFT    int      `json:"nfft"`
	WinSize int      `json:"winsize"`
	Overlap int      `json:"overlap"`
	URLs    []string `json:"urls"`
}
