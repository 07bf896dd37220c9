package workbench

import (
	"encoding/json"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pelagiclabs/annotator/pkg/cerr"
)

// Server exposes the session lifecycle and the workbench event surface over
// HTTP. All routes except the PNG snapshot speak JSON through the response
// middleware.
type Server struct {
	registry *Registry
}

func NewServer(registry *Registry) *Server {
	return &Server{registry: registry}
}

// Routes mounts the session API on the router. The router is expected to
// already carry the logging and JSON response middlewares.
func (s *Server) Routes(r chi.Router) {
	r.Post("/sessions", s.createSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.getState)
		r.Delete("/", s.deleteSession)
		r.Post("/pointer", s.pointer)
		r.Post("/key", s.key)
		r.Post("/focus", s.focus)
		r.Post("/zoom", s.zoom)
		r.Post("/scroll", s.scroll)
		r.Post("/playback", s.playback)
		r.Post("/label", s.label)
		r.Post("/confidence", s.confidence)
		r.Post("/comment", s.comment)
		r.Post("/confirm", s.confirm)
		r.Post("/cancel", s.cancel)
		r.Post("/submit", s.submit)
		r.Post("/rendition", s.rendition)
		r.Post("/annotations/{annotationID}/activate", s.activateAnnotation)
		r.Delete("/annotations/{annotationID}", s.deleteAnnotation)
		r.Get("/toasts", s.toasts)
	})
}

// SnapshotRoutes mounts the binary endpoints that bypass the JSON response
// middleware.
func (s *Server) SnapshotRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/spectrogram.png", s.snapshot)
}

func (s *Server) session(r *http.Request) (*Session, error) {
	return s.registry.Get(chi.URLParam(r, "sessionID"))
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

type createSessionRequest struct {
	TaskID       int64 `json:"task_id"`
	CanvasWidth  int   `json:"canvas_width"`
	CanvasHeight int   `json:"canvas_height"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	session, err := s.registry.Create(ctx, req.TaskID, req.CanvasWidth, req.CanvasHeight)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.registry.Delete(chi.URLParam(r, "sessionID")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}

type pointerRequest struct {
	Type string  `json:"type"` // down, move, up, cancel
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (s *Server) pointer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req pointerRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	switch req.Type {
	case "down":
		session.PointerDown(req.X, req.Y)
	case "move":
		session.PointerMove(req.X, req.Y)
	case "up":
		session.PointerUp(ctx, req.X, req.Y)
	case "cancel":
		session.PointerCancel()
	default:
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "unknown pointer event type", nil)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) key(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req keyRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.HandleKey(ctx, req.Key); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type focusRequest struct {
	Focused bool `json:"focused"`
}

func (s *Server) focus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req focusRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	session.FocusInput(req.Focused)
	cerr.SetJSONResponse(ctx, struct{}{})
}

type zoomRequest struct {
	Direction string  `json:"direction"` // in, out
	AnchorX   float64 `json:"anchor_x"`
	AtCursor  bool    `json:"at_cursor"` // true for button zoom anchored on playback
}

func (s *Server) zoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req zoomRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	in := req.Direction == "in"
	if req.AtCursor {
		session.ZoomButton(in)
	} else {
		session.ZoomWheel(in, req.AnchorX)
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type scrollRequest struct {
	Time float64 `json:"time"`
}

func (s *Server) scroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req scrollRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	session.ScrollTo(req.Time)
	cerr.SetJSONResponse(ctx, session.State())
}

type playbackRequest struct {
	Action string  `json:"action"` // play, pause, toggle, seek
	Time   float64 `json:"time"`
}

func (s *Server) playback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req playbackRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	switch req.Action {
	case "play":
		session.Play()
	case "pause":
		session.Pause()
	case "toggle":
		session.TogglePlayback()
	case "seek":
		session.Seek(req.Time)
	default:
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "unknown playback action", nil)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type labelRequest struct {
	Label string `json:"label"`
}

func (s *Server) label(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req labelRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.SelectLabel(ctx, req.Label); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type confidenceRequest struct {
	Value string `json:"value"`
}

func (s *Server) confidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req confidenceRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.SetConfidence(ctx, req.Value); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) comment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req commentRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.SetComment(ctx, req.Content); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	session.Confirm(ctx)
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	session.CancelPending()
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.Submit(ctx); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

type renditionRequest struct {
	Index int `json:"index"`
}

func (s *Server) rendition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req renditionRequest
	if err := decode(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.SelectRendition(req.Index); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) annotationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "annotationID"), 10, 64)
	if err != nil {
		return 0, cerr.NewError(cerr.InvalidArgument, "invalid annotation id", err)
	}
	return id, nil
}

func (s *Server) activateAnnotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	id, err := s.annotationID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.ActivateAnnotation(id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) deleteAnnotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	id, err := s.annotationID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := session.DeleteAnnotation(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.State())
}

func (s *Server) toasts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.session(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, session.DrainToasts())
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, session.Snapshot()); err != nil {
		http.Error(w, "failed to encode snapshot", http.StatusInternalServerError)
	}
}
