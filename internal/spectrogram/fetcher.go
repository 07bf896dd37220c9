package spectrogram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pelagiclabs/annotator/pkg/storage"
)

// Fetcher retrieves raw tile image bytes by URL.
type Fetcher interface {
	Fetch(ctx context.Context, tileURL string) ([]byte, error)
}

// HTTPFetcher fetches tiles over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{Client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, tileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tile request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile %s: %w", tileURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile %s: unexpected status %d", tileURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %s: %w", tileURL, err)
	}
	return data, nil
}

// StorageFetcher serves tiles from a storage backend (local disk or S3) for
// campaigns whose tile sets are mirrored next to the server. The tile URL's
// path component is used as the storage key.
type StorageFetcher struct {
	store storage.Storage
}

func NewStorageFetcher(store storage.Storage) *StorageFetcher {
	return &StorageFetcher{store: store}
}

func (f *StorageFetcher) Fetch(ctx context.Context, tileURL string) ([]byte, error) {
	key := tileURL
	if u, err := url.Parse(tileURL); err == nil && u.Path != "" {
		key = strings.TrimPrefix(u.Path, "/")
	}
	return f.store.Read(ctx, key)
}
