package annotation

import (
	"fmt"
	"sort"

	"github.com/pelagiclabs/annotator/pkg/cerr"
)

// Store holds the ordered annotation set of the loaded task and enforces the
// per-regime invariants. It is not safe for concurrent use; the owning
// session serializes access.
type Store struct {
	mode Mode
	anns []*Annotation

	nextTemp int64 // next temporary identifier (negative, unique per task)

	taskComment        Comment
	confidenceRequired bool
}

func NewStore(mode Mode) *Store {
	return &Store{mode: mode}
}

// RequireConfidence makes Serialize reject annotations without a confidence
// label. Set when the task carries a confidence-indicator set.
func (s *Store) RequireConfidence(required bool) {
	s.confidenceRequired = required
}

func (s *Store) Mode() Mode {
	return s.mode
}

// Seed replaces the collection with previously submitted annotations, e.g.
// when re-opening a task. Temporary identifier allocation restarts below the
// lowest seeded identifier so placeholders never collide.
func (s *Store) Seed(anns []*Annotation) {
	s.anns = anns
	s.nextTemp = 0
	for _, a := range anns {
		if a.ID <= s.nextTemp {
			s.nextTemp = a.ID
		}
	}
}

func (s *Store) allocTempID() int64 {
	s.nextTemp--
	return s.nextTemp
}

// Len returns the number of annotations in the store.
func (s *Store) Len() int {
	return len(s.anns)
}

// All returns the annotations in insertion order. The slice is a copy; the
// elements are shared.
func (s *Store) All() []*Annotation {
	return append([]*Annotation(nil), s.anns...)
}

func (s *Store) Get(id int64) *Annotation {
	for _, a := range s.anns {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Active returns the single active annotation, or nil.
func (s *Store) Active() *Annotation {
	for _, a := range s.anns {
		if a.Active {
			return a
		}
	}
	return nil
}

// CreateBox commits a drag-to-create rectangle as a new annotation. The new
// annotation receives a fresh temporary identifier and becomes the single
// active one. A zero-width box is invalid and never persisted.
func (s *Store) CreateBox(startTime, endTime, startFreq, endFreq float64, label string) (*Annotation, error) {
	if endTime <= startTime {
		return nil, cerr.NewError(cerr.InvalidArgument, "box has no time extent", nil)
	}
	if s.mode == ModeWholeFile && label == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "select a tag before drawing", nil)
	}
	a := &Annotation{
		ID:             s.allocTempID(),
		Kind:           KindBox,
		StartTime:      startTime,
		EndTime:        endTime,
		StartFrequency: startFreq,
		EndFrequency:   endFreq,
		Label:          label,
	}
	s.deactivateAll()
	a.Active = true
	s.anns = append(s.anns, a)
	return a, nil
}

// HasTag reports whether a whole-file tag for the label exists.
func (s *Store) HasTag(label string) bool {
	return s.findTag(label) != nil
}

func (s *Store) findTag(label string) *Annotation {
	for _, a := range s.anns {
		if a.Kind == KindTag && a.Label == label {
			return a
		}
	}
	return nil
}

// CreateTag adds the whole-file presence annotation for a label. Callers
// must not double-create: when a tag for the label already exists the call
// is a toggle, and the caller routes it through the confirmable delete
// instead. The error code FailedPrecondition signals that case.
func (s *Store) CreateTag(label string) (*Annotation, error) {
	if s.mode != ModeWholeFile {
		return nil, cerr.NewError(cerr.FailedPrecondition, "tags only exist in presence/absence mode", nil)
	}
	if s.findTag(label) != nil {
		return nil, cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf("tag %q already present", label), nil)
	}
	a := NewTag(label)
	a.ID = s.allocTempID()
	s.deactivateAll()
	a.Active = true
	s.anns = append(s.anns, a)
	return a, nil
}

func (s *Store) deactivateAll() {
	for _, a := range s.anns {
		a.Active = false
	}
}

// Activate makes the given annotation the single active one.
func (s *Store) Activate(id int64) error {
	target := s.Get(id)
	if target == nil {
		return cerr.NewError(cerr.NotFound, "annotation not found", nil)
	}
	s.deactivateAll()
	target.Active = true
	return nil
}

// DeactivateAll clears the active flag on every annotation, e.g. when focus
// returns to the task-level comment.
func (s *Store) DeactivateAll() {
	s.deactivateAll()
}

// UpdateLabel applies a label choice to an annotation. In box mode,
// re-applying the annotation's current label clears it (toggle). In
// whole-file mode, choosing the label of a different existing tag switches
// activation to that tag instead of relabeling.
func (s *Store) UpdateLabel(id int64, label string) error {
	target := s.Get(id)
	if target == nil {
		return cerr.NewError(cerr.NotFound, "annotation not found", nil)
	}
	if s.mode == ModeWholeFile {
		if other := s.findTag(label); other != nil && other.ID != id {
			s.deactivateAll()
			other.Active = true
			return nil
		}
	}
	if s.mode == ModeBox && target.Label == label {
		target.Label = ""
		return nil
	}
	target.Label = label
	return nil
}

// UpdateConfidence sets the confidence label of an annotation.
func (s *Store) UpdateConfidence(id int64, confidence string) error {
	target := s.Get(id)
	if target == nil {
		return cerr.NewError(cerr.NotFound, "annotation not found", nil)
	}
	target.Confidence = confidence
	return nil
}

// Delete removes a single annotation.
func (s *Store) Delete(id int64) error {
	for i, a := range s.anns {
		if a.ID == id {
			s.anns = append(s.anns[:i], s.anns[i+1:]...)
			return nil
		}
	}
	return cerr.NewError(cerr.NotFound, "annotation not found", nil)
}

// DeleteAllWithLabel removes every annotation carrying the label: the
// whole-file tag and any boxes drawn under it. This is the destructive half
// of the presence toggle; the session gates it behind a user confirmation.
// It returns the number of removed annotations.
func (s *Store) DeleteAllWithLabel(label string) int {
	kept := s.anns[:0]
	removed := 0
	for _, a := range s.anns {
		if a.Label == label {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.anns = kept
	return removed
}

// ReconcileID rewrites a temporary identifier to the permanent one assigned
// by the campaign service. If newID is already held by an unrelated
// annotation, that holder is first renumbered to a fresh scratch identifier
// so no two annotations ever collide mid-update.
func (s *Store) ReconcileID(oldID, newID int64) error {
	target := s.Get(oldID)
	if target == nil {
		return cerr.NewError(cerr.NotFound, "annotation not found", nil)
	}
	if holder := s.Get(newID); holder != nil && holder != target {
		holder.ID = s.allocTempID()
	}
	target.ID = newID
	return nil
}

// SetTaskComment stores the task-level comment (shown when no annotation is
// active).
func (s *Store) SetTaskComment(c Comment) {
	s.taskComment = c
}

func (s *Store) TaskComment() Comment {
	return s.taskComment
}

// CurrentComment exposes the comment for the active annotation, falling back
// to the task-level comment when none is active. The second return value
// reports whether the comment belongs to an annotation.
func (s *Store) CurrentComment() (Comment, bool) {
	if a := s.Active(); a != nil {
		if len(a.Comments) > 0 {
			return a.Comments[0], true
		}
		return Comment{}, true
	}
	return s.taskComment, false
}

// SetCurrentComment writes the comment of the active annotation, or the
// task-level comment when none is active.
func (s *Store) SetCurrentComment(c Comment) {
	if a := s.Active(); a != nil {
		if len(a.Comments) > 0 {
			a.Comments[0] = c
		} else {
			a.Comments = []Comment{c}
		}
		return
	}
	s.taskComment = c
}

// ValidationError reports a submit-time validation failure. The offending
// annotation has already been activated so the user can fix it.
type ValidationError struct {
	AnnotationID int64
	Reason       string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Serialize orders the set for submission: ascending start time, ties broken
// by label only in whole-file mode (box ordering by label has no meaning).
// An empty label, or a missing confidence when one is required, blocks
// submission; the first offender is auto-activated. The returned annotations
// are detached copies, so callers may hold or marshal them after the store's
// owner releases its lock.
func (s *Store) Serialize() ([]*Annotation, error) {
	for _, a := range s.anns {
		if a.Label == "" {
			s.deactivateAll()
			a.Active = true
			return nil, &ValidationError{AnnotationID: a.ID, Reason: "an annotation is missing its tag"}
		}
		if s.confidenceRequired && a.Confidence == "" {
			s.deactivateAll()
			a.Active = true
			return nil, &ValidationError{AnnotationID: a.ID, Reason: "an annotation is missing its confidence indicator"}
		}
	}
	out := make([]*Annotation, len(s.anns))
	for i, a := range s.anns {
		c := *a
		c.Comments = append([]Comment(nil), a.Comments...)
		out[i] = &c
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		if s.mode == ModeWholeFile {
			return out[i].Label < out[j].Label
		}
		return false
	})
	return out, nil
}
