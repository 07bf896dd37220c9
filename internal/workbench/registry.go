package workbench

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/pelagiclabs/annotator/internal/draft"
	"github.com/pelagiclabs/annotator/internal/eventbus"
	"github.com/pelagiclabs/annotator/internal/spectrogram"
	"github.com/pelagiclabs/annotator/pkg/cerr"
)

// Registry owns the live sessions of the process.
type Registry struct {
	bus     *eventbus.Bus
	svc     TaskService
	drafts  draft.Repository
	fetcher spectrogram.Fetcher

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(bus *eventbus.Bus, svc TaskService, drafts draft.Repository, fetcher spectrogram.Fetcher) *Registry {
	return &Registry{
		bus:      bus,
		svc:      svc,
		drafts:   drafts,
		fetcher:  fetcher,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session on a task. The canvas dimensions fix the viewport
// the session renders into.
func (r *Registry) Create(ctx context.Context, taskID int64, width, height int) (*Session, error) {
	if width <= 0 || height <= 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "canvas dimensions must be positive", nil)
	}
	s := NewSession(ulid.Make().String(), r.bus, r.svc, r.drafts, r.fetcher, width, height)
	if err := s.LoadTask(ctx, taskID); err != nil {
		s.Close()
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "session not found", nil)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return cerr.NewError(cerr.NotFound, "session not found", nil)
	}
	s.Close()
	return nil
}

// CloseAll tears down every session, for process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
