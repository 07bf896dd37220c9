// Package workbench hosts annotation sessions: one Session per open task,
// orchestrating the annotation store, the spectrogram loader, playback and
// pointer/keyboard handling. A session serializes all access through a single
// mutex, so handlers observe the same ordering guarantees a single-threaded
// event loop would give.
package workbench

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/pelagiclabs/annotator/internal/annotation"
	"github.com/pelagiclabs/annotator/internal/coordinate"
	"github.com/pelagiclabs/annotator/internal/draft"
	"github.com/pelagiclabs/annotator/internal/eventbus"
	"github.com/pelagiclabs/annotator/internal/region"
	"github.com/pelagiclabs/annotator/internal/render"
	"github.com/pelagiclabs/annotator/internal/spectrogram"
	"github.com/pelagiclabs/annotator/internal/taskapi"
	"github.com/pelagiclabs/annotator/pkg/cerr"
	"github.com/pelagiclabs/annotator/pkg/panicerr"
)

const playbackTickInterval = 100 * time.Millisecond

// TaskService is the slice of the campaign client a session needs.
type TaskService interface {
	Retrieve(ctx context.Context, taskID int64) (*taskapi.Task, error)
	Update(ctx context.Context, taskID int64, anns []*annotation.Annotation, taskComment string, startEpoch, endEpoch float64) (*taskapi.UpdateResult, error)
	AddAnnotation(ctx context.Context, taskID int64, ann *annotation.Annotation, startEpoch, endEpoch float64) (int64, error)
	CreateOrUpdateComment(ctx context.Context, taskID int64, comment annotation.Comment, annotationID *int64) (annotation.Comment, error)
}

// Toast is a transient user notification. Level is one of "info", "success"
// or "danger".
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Confirmation is a destructive action awaiting the user's explicit go-ahead.
type Confirmation struct {
	Message string `json:"message"`
	Label   string `json:"label"`
}

type Session struct {
	id      string
	bus     *eventbus.Bus
	svc     TaskService
	drafts  draft.Repository
	loader  *spectrogram.Loader
	runCtx  context.Context
	stop    context.CancelFunc
	width   int
	height  int

	mu            sync.Mutex
	task          *taskapi.Task
	store         *annotation.Store
	view          coordinate.View
	player        *Player
	controller    *region.Controller
	renditions    []*spectrogram.Rendition
	renditionIdx  int
	selectedLabel string
	pending       *Confirmation
	inputFocused  bool
	submitting    bool
	toasts        []Toast
}

func NewSession(id string, bus *eventbus.Bus, svc TaskService, drafts draft.Repository, fetcher spectrogram.Fetcher, width, height int) *Session {
	runCtx, stop := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		bus:        bus,
		svc:        svc,
		drafts:     drafts,
		loader:     spectrogram.NewLoader(fetcher, bus),
		runCtx:     runCtx,
		stop:       stop,
		width:      width,
		height:     height,
		controller: region.NewController(),
	}
	go func() {
		if err := panicerr.Safe(func() error {
			s.run(runCtx)
			return nil
		})(); err != nil {
			slog.Error("playback loop crashed", "session_id", id, "error", err)
		}
	}()
	return s
}

func (s *Session) ID() string { return s.id }

// Close tears the session down: the playback loop stops and any in-flight
// tile load is cancelled.
func (s *Session) Close() {
	s.stop()
	s.loader.Stop()
}

func (s *Session) run(ctx context.Context) {
	ticker := time.NewTicker(playbackTickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.mu.Lock()
			moved := s.player != nil && s.player.Tick(dt)
			var position float64
			if s.player != nil {
				position = s.player.Position()
			}
			s.mu.Unlock()
			if moved {
				s.bus.PublishNew(eventbus.EventTypePlaybackTick, s.id, map[string]string{
					"position": strconv.FormatFloat(position, 'f', 3, 64),
				})
			}
		}
	}
}

// LoadTask fetches a task from the campaign service and makes it the
// session's working task. A saved draft for the task, when present, takes
// precedence over the service's previously submitted annotations.
func (s *Session) LoadTask(ctx context.Context, taskID int64) error {
	task, err := s.svc.Retrieve(ctx, taskID)
	if err != nil {
		return err
	}

	store := annotation.NewStore(task.Mode)
	store.RequireConfidence(task.HasConfidence())
	store.SetTaskComment(task.TaskComment)
	store.Seed(task.Annotations)
	if d, err := s.drafts.Get(ctx, taskID); err == nil {
		store.Seed(d.Annotations)
		store.SetTaskComment(d.TaskComment)
		s.pushToast("info", "restored unsubmitted draft")
	} else if !cerr.IsCode(err, cerr.NotFound) {
		slog.Warn("failed to read draft", "task_id", taskID, "error", err)
	}

	renditions := spectrogram.BuildCatalogue(task.Spectrograms, task.Duration())

	s.mu.Lock()
	s.task = task
	s.store = store
	s.view = coordinate.View{
		CanvasWidth:    s.width,
		CanvasHeight:   s.height,
		Duration:       task.Duration(),
		StartFrequency: task.Boundaries.StartFrequency,
		FrequencyRange: task.FrequencyRange(),
		Zoom:           1,
	}
	s.player = NewPlayer(task.Duration())
	s.renditions = renditions
	s.renditionIdx = 0
	s.selectedLabel = ""
	s.pending = nil
	s.submitting = false
	s.controller.Cancel()
	s.mu.Unlock()

	if len(renditions) > 0 {
		s.loader.Start(s.runCtx, renditions[0], s.id)
	}
	s.bus.PublishNew(eventbus.EventTypeTaskChanged, s.id, map[string]string{
		"task_id": strconv.FormatInt(taskID, 10),
	})
	return nil
}

// PointerDown starts a pointer sequence on the canvas. In the presence
// regime a rectangle may only be drawn under a selected tag, so the down is
// refused until one is chosen.
func (s *Session) PointerDown(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return
	}
	allowed := s.store.Mode() == annotation.ModeBox || s.selectedLabel != ""
	s.controller.Down(s.view, x, y, allowed)
}

func (s *Session) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Move(s.view, x, y)
}

// PointerUp completes the sequence: a click either activates the smallest
// annotation under the cursor or seeks playback; a drag commits the dragged
// rectangle as a new annotation.
func (s *Session) PointerUp(ctx context.Context, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return
	}
	g := s.controller.Up(s.view, x, y)
	switch g.Kind {
	case region.GestureClick:
		if hit := s.hitBox(g.Time, g.Frequency); hit != nil {
			s.activateLocked(hit)
			s.publishAnnotationsChanged()
			return
		}
		s.player.Seek(g.Time)
	case region.GestureDrag:
		a, err := s.store.CreateBox(g.Rect.StartTime, g.Rect.EndTime, g.Rect.StartFrequency, g.Rect.EndFrequency, s.selectedLabel)
		if err != nil {
			s.pushToast("danger", err.Error())
			return
		}
		slog.Debug("box created", "session_id", s.id, "annotation_id", a.ID, "label", a.Label)
		s.publishAnnotationsChanged()
		s.saveDraftLocked(ctx)
	}
}

// PointerCancel aborts an in-progress drag, e.g. when the pointer capture is
// lost.
func (s *Session) PointerCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Cancel()
}

func (s *Session) hitBox(t, f float64) *annotation.Annotation {
	var best *annotation.Annotation
	var bestArea float64
	for _, a := range s.store.All() {
		if a.Kind != annotation.KindBox {
			continue
		}
		if t < a.StartTime || t > a.EndTime || f < a.StartFrequency || f > a.EndFrequency {
			continue
		}
		area := (a.EndTime - a.StartTime) * (a.EndFrequency - a.StartFrequency)
		if best == nil || area < bestArea {
			best, bestArea = a, area
		}
	}
	return best
}

// activateLocked makes the annotation active and, when it has a real time
// extent, moves the playback cursor to its start with a stop armed at its
// end.
func (s *Session) activateLocked(a *annotation.Annotation) {
	if err := s.store.Activate(a.ID); err != nil {
		return
	}
	if a.HasExtent() {
		s.player.Seek(a.StartTime)
		s.player.ArmStop(a.EndTime)
	}
}

// ActivateAnnotation selects an annotation from the result list.
func (s *Session) ActivateAnnotation(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return cerr.NewError(cerr.FailedPrecondition, "no task loaded", nil)
	}
	a := s.store.Get(id)
	if a == nil {
		return cerr.NewError(cerr.NotFound, "annotation not found", nil)
	}
	s.activateLocked(a)
	s.publishAnnotationsChanged()
	return nil
}

// DeleteAnnotation removes a single annotation.
func (s *Session) DeleteAnnotation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return cerr.NewError(cerr.FailedPrecondition, "no task loaded", nil)
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.publishAnnotationsChanged()
	s.saveDraftLocked(ctx)
	return nil
}

// SelectLabel applies a label choice, from the label buttons or a digit key.
// In the box regime it either relabels the active annotation or picks the
// label for the next drawn box. In the presence regime it toggles the
// whole-file tag: adding is immediate, removing is destructive and goes
// through a pending confirmation because it deletes every annotation under
// that label.
func (s *Session) SelectLabel(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLabelLocked(ctx, label)
}

func (s *Session) selectLabelLocked(ctx context.Context, label string) error {
	if s.store == nil {
		return cerr.NewError(cerr.FailedPrecondition, "no task loaded", nil)
	}
	if s.pending != nil {
		return nil
	}
	if !s.knownLabel(label) {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown label %q", label), nil)
	}

	if s.store.Mode() == annotation.ModeBox {
		if active := s.store.Active(); active != nil {
			if err := s.store.UpdateLabel(active.ID, label); err != nil {
				return err
			}
			s.publishAnnotationsChanged()
			s.saveDraftLocked(ctx)
			return nil
		}
		if s.selectedLabel == label {
			s.selectedLabel = ""
		} else {
			s.selectedLabel = label
		}
		return nil
	}

	// Presence regime.
	if s.store.HasTag(label) {
		if s.selectedLabel != label {
			// Re-selecting an existing tag only moves the selection.
			s.selectedLabel = label
			if tag := s.tagByLabel(label); tag != nil {
				s.activateLocked(tag)
			}
			s.publishAnnotationsChanged()
			return nil
		}
		s.pending = &Confirmation{
			Label:   label,
			Message: fmt.Sprintf("remove %q and every annotation under it?", label),
		}
		return nil
	}

	tag, err := s.store.CreateTag(label)
	if err != nil {
		return err
	}
	s.selectedLabel = label
	if newID, err := s.svc.AddAnnotation(ctx, s.task.ID, tag, s.task.Boundaries.StartTime, s.task.Boundaries.EndTime); err != nil {
		slog.Warn("failed to persist tag, keeping placeholder id", "label", label, "error", err)
	} else if err := s.store.ReconcileID(tag.ID, newID); err != nil {
		slog.Warn("failed to reconcile tag id", "label", label, "error", err)
	}
	s.publishAnnotationsChanged()
	s.saveDraftLocked(ctx)
	return nil
}

func (s *Session) knownLabel(label string) bool {
	for _, l := range s.task.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (s *Session) tagByLabel(label string) *annotation.Annotation {
	for _, a := range s.store.All() {
		if a.Kind == annotation.KindTag && a.Label == label {
			return a
		}
	}
	return nil
}

// Confirm executes the pending destructive action.
func (s *Session) Confirm(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	label := s.pending.Label
	s.pending = nil
	removed := s.store.DeleteAllWithLabel(label)
	if s.selectedLabel == label {
		s.selectedLabel = ""
	}
	s.pushToast("info", fmt.Sprintf("removed %d annotation(s) labelled %q", removed, label))
	s.publishAnnotationsChanged()
	s.saveDraftLocked(ctx)
}

// CancelPending dismisses the pending confirmation without acting.
func (s *Session) CancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// SetConfidence applies a confidence indicator to the active annotation.
func (s *Session) SetConfidence(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return cerr.NewError(cerr.FailedPrecondition, "no task loaded", nil)
	}
	active := s.store.Active()
	if active == nil {
		return cerr.NewError(cerr.FailedPrecondition, "no annotation selected", nil)
	}
	if err := s.store.UpdateConfidence(active.ID, value); err != nil {
		return err
	}
	s.publishAnnotationsChanged()
	s.saveDraftLocked(ctx)
	return nil
}

// SetComment writes the comment shown in the comment panel: the active
// annotation's when one is selected, the task-level comment otherwise.
// Comments on annotations that still carry a placeholder identifier stay
// local until submission assigns a real one.
func (s *Session) SetComment(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return cerr.NewError(cerr.FailedPrecondition, "no task loaded", nil)
	}
	current, onAnnotation := s.store.CurrentComment()
	current.Content = content
	s.store.SetCurrentComment(current)

	var annotationID *int64
	if onAnnotation {
		active := s.store.Active()
		if active.IsTemporary() {
			s.saveDraftLocked(ctx)
			return nil
		}
		annotationID = &active.ID
	}
	saved, err := s.svc.CreateOrUpdateComment(ctx, s.task.ID, current, annotationID)
	if err != nil {
		slog.Warn("failed to persist comment", "error", err)
	} else {
		s.store.SetCurrentComment(saved)
	}
	s.saveDraftLocked(ctx)
	return nil
}

// FocusInput marks a text input as focused; keyboard shortcuts are
// suspended until focus leaves it.
func (s *Session) FocusInput(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputFocused = focused
}

// HandleKey routes a keyboard event. Shortcuts are inert while a text input
// has focus or a confirmation is pending, except Escape which dismisses the
// confirmation.
func (s *Session) HandleKey(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.store == nil || s.inputFocused {
		s.mu.Unlock()
		return nil
	}
	intent := DecodeKey(key)
	if s.pending != nil {
		if intent.Action == KeyActionEscape {
			s.pending = nil
		}
		s.mu.Unlock()
		return nil
	}

	switch intent.Action {
	case KeyActionLabel:
		if intent.LabelIndex < len(s.task.Labels) {
			err := s.selectLabelLocked(ctx, s.task.Labels[intent.LabelIndex])
			s.mu.Unlock()
			return err
		}
	case KeyActionPlayPause:
		s.player.Toggle()
	case KeyActionEscape:
		s.controller.Cancel()
	case KeyActionSubmit:
		s.mu.Unlock()
		return s.Submit(ctx)
	}
	s.mu.Unlock()
	return nil
}

// ZoomWheel zooms by one power-of-two step keeping the time under the
// pointer stationary.
func (s *Session) ZoomWheel(in bool, anchorX float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = s.view.ZoomAround(s.nextZoom(in), anchorX)
}

// ZoomButton zooms by one power-of-two step anchored on the playback cursor.
func (s *Session) ZoomButton(in bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var position float64
	if s.player != nil {
		position = s.player.Position()
	}
	s.view = s.view.ZoomAtTime(s.nextZoom(in), position)
}

func (s *Session) nextZoom(in bool) int {
	zoom := s.view.Zoom
	if in {
		zoom *= 2
	} else {
		zoom /= 2
	}
	if zoom < 1 {
		zoom = 1
	}
	if max := s.maxZoom(); zoom > max {
		zoom = max
	}
	return zoom
}

func (s *Session) maxZoom() int {
	if len(s.renditions) == 0 {
		return 1
	}
	return s.renditions[s.renditionIdx].MaxZoom()
}

// ScrollTo moves the viewport's left edge to time t.
func (s *Session) ScrollTo(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = s.view.ScrollTo(t)
}

// SelectRendition switches to another analysis configuration. Its tile
// pyramid restarts progressive loading from the coarsest level.
func (s *Session) SelectRendition(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.renditions) {
		s.mu.Unlock()
		return cerr.NewError(cerr.InvalidArgument, "no such spectrogram configuration", nil)
	}
	s.renditionIdx = index
	r := s.renditions[index]
	s.mu.Unlock()
	s.loader.Start(s.runCtx, r, s.id)
	return nil
}

// Play, Pause, TogglePlayback and Seek drive the playback cursor.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Play()
	}
}

func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Pause()
	}
}

func (s *Session) TogglePlayback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Toggle()
	}
}

func (s *Session) Seek(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		s.player.Seek(t)
	}
}

// Submit validates and sends the annotation set to the campaign service.
// A validation failure surfaces as a danger toast with the offending
// annotation activated, and nothing is sent. On success the draft is dropped
// and, when the campaign has a next task, the session navigates to it.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.store == nil {
		s.mu.Unlock()
		return cerr.NewError(cerr.FailedPrecondition, "no task loaded", nil)
	}
	if s.submitting {
		s.mu.Unlock()
		return nil
	}
	anns, err := s.store.Serialize()
	if err != nil {
		s.pushToast("danger", err.Error())
		s.publishAnnotationsChanged()
		s.mu.Unlock()
		return nil
	}
	s.submitting = true
	taskID := s.task.ID
	taskComment := s.store.TaskComment().Content
	bounds := s.task.Boundaries
	s.mu.Unlock()

	res, err := s.svc.Update(ctx, taskID, anns, taskComment, bounds.StartTime, bounds.EndTime)

	// The guard only protects the Update call itself; once it returned, the
	// session must be able to submit again whatever happens next (a failed
	// next-task navigation included).
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()

	if err != nil {
		s.mu.Lock()
		s.pushToast("danger", "submission failed, annotations kept locally")
		s.mu.Unlock()
		return err
	}

	if err := s.drafts.Delete(ctx, taskID); err != nil && !cerr.IsCode(err, cerr.NotFound) {
		slog.Warn("failed to drop draft after submit", "task_id", taskID, "error", err)
	}
	s.bus.PublishNew(eventbus.EventTypeSubmitted, s.id, map[string]string{
		"task_id": strconv.FormatInt(taskID, 10),
	})

	s.mu.Lock()
	s.pushToast("success", "annotations submitted")
	s.mu.Unlock()

	if res.NextTask != nil {
		return s.LoadTask(ctx, *res.NextTask)
	}
	s.mu.Lock()
	s.pushToast("info", "no more tasks in this campaign")
	s.mu.Unlock()
	return nil
}

// saveDraftLocked checkpoints the working state. Best effort: a failed save
// must never break the interaction that triggered it.
func (s *Session) saveDraftLocked(ctx context.Context) {
	d := &draft.Draft{
		TaskID:      s.task.ID,
		Annotations: s.store.All(),
		TaskComment: s.store.TaskComment(),
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		slog.Warn("failed to save draft", "task_id", s.task.ID, "error", err)
	}
}

func (s *Session) publishAnnotationsChanged() {
	s.bus.PublishNew(eventbus.EventTypeAnnotationsChanged, s.id, nil)
}

func (s *Session) pushToast(level, message string) {
	s.toasts = append(s.toasts, Toast{Level: level, Message: message})
	s.bus.PublishNew(eventbus.EventTypeToast, s.id, map[string]string{
		"level":   level,
		"message": message,
	})
}

// DrainToasts returns and clears the queued notifications.
func (s *Session) DrainToasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.toasts
	s.toasts = nil
	return out
}

// State is the JSON snapshot of a session served to the UI.
type State struct {
	SessionID     string                   `json:"session_id"`
	TaskID        int64                    `json:"task_id"`
	Filename      string                   `json:"filename"`
	Mode          annotation.Mode          `json:"mode"`
	Labels        []string                 `json:"labels"`
	Confidences   []string                 `json:"confidence_indicators"`
	SelectedLabel string                   `json:"selected_label"`
	Zoom          int                      `json:"zoom"`
	DisplayZoom   int                      `json:"display_zoom"`
	ScrollPx      float64                  `json:"scroll_px"`
	Position      float64                  `json:"position"`
	Playing       bool                     `json:"playing"`
	Annotations   []*annotation.Annotation `json:"annotations"`
	TaskComment   annotation.Comment       `json:"task_comment"`
	Pending       *Confirmation            `json:"pending_confirmation,omitempty"`
	Submitting    bool                     `json:"submitting"`
	Navigation    taskapi.Navigation       `json:"prev_and_next"`
}

// State snapshots the session for the UI.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return &State{SessionID: s.id}
	}
	return &State{
		SessionID:     s.id,
		TaskID:        s.task.ID,
		Filename:      s.task.Filename,
		Mode:          s.store.Mode(),
		Labels:        s.task.Labels,
		Confidences:   s.task.Confidences,
		SelectedLabel: s.selectedLabel,
		Zoom:          s.view.Zoom,
		DisplayZoom:   s.loader.DisplayLevel(s.view.Zoom),
		ScrollPx:      s.view.ScrollPx,
		Position:      s.player.Position(),
		Playing:       s.player.Playing(),
		Annotations:   s.store.All(),
		TaskComment:   s.store.TaskComment(),
		Pending:       s.pending,
		Submitting:    s.submitting,
		Navigation:    s.task.Navigation,
	}
}

// Snapshot renders the current canvas with axes as a PNG-ready image.
func (s *Session) Snapshot() *image.RGBA {
	s.mu.Lock()
	view := s.view
	var position float64
	if s.player != nil {
		position = s.player.Position()
	}
	provisional := s.controller.Candidate()
	var boxes []render.Box
	if s.store != nil {
		for _, a := range s.store.All() {
			if a.Kind != annotation.KindBox {
				continue
			}
			boxes = append(boxes, render.Box{
				StartTime:      a.StartTime,
				EndTime:        a.EndTime,
				StartFrequency: a.StartFrequency,
				EndFrequency:   a.EndFrequency,
				Label:          a.Label,
				Active:         a.Active,
			})
		}
	}
	s.mu.Unlock()

	_, tiles := s.loader.DisplayTiles(view.Zoom)
	return render.Snapshot(render.Frame{
		View:         view,
		Tiles:        tiles,
		PlaybackTime: position,
		Provisional:  provisional,
		Boxes:        boxes,
	})
}
