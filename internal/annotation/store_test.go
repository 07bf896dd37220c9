package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagiclabs/annotator/pkg/cerr"
)

func TestCreateBoxActivatesAndDeactivatesOthers(t *testing.T) {
	s := NewStore(ModeBox)

	first, err := s.CreateBox(1, 5, 100, 400, "whistle")
	require.NoError(t, err)
	assert.True(t, first.Active)
	assert.True(t, first.IsTemporary())

	second, err := s.CreateBox(2, 6, 200, 500, "click")
	require.NoError(t, err)
	assert.True(t, second.Active)
	assert.False(t, first.Active)
	assert.NotEqual(t, first.ID, second.ID)

	active := 0
	for _, a := range s.All() {
		if a.Active {
			active++
		}
	}
	assert.Equal(t, 1, active, "exactly one annotation may be active")
}

func TestCreateBoxRejectsZeroWidth(t *testing.T) {
	s := NewStore(ModeBox)
	_, err := s.CreateBox(3, 3, 0, 100, "x")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	assert.Equal(t, 0, s.Len())
}

func TestCreateTagToggleSemantics(t *testing.T) {
	s := NewStore(ModeWholeFile)

	_, err := s.CreateTag("A")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	// Second create for the same label is a toggle; the store refuses and
	// the caller must route through the confirmable delete.
	_, err = s.CreateTag("A")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
	assert.Equal(t, 1, s.Len(), "store size unchanged after toggle create")

	removed := s.DeleteAllWithLabel("A")
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.HasTag("A"))
}

func TestCreateTagRejectedInBoxMode(t *testing.T) {
	s := NewStore(ModeBox)
	_, err := s.CreateTag("A")
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestUpdateLabelBoxToggleClears(t *testing.T) {
	s := NewStore(ModeBox)
	a, err := s.CreateBox(0, 1, 0, 10, "whistle")
	require.NoError(t, err)

	require.NoError(t, s.UpdateLabel(a.ID, "whistle"))
	assert.Equal(t, "", a.Label, "re-applying the same label clears it")

	require.NoError(t, s.UpdateLabel(a.ID, "click"))
	assert.Equal(t, "click", a.Label)
}

func TestUpdateLabelWholeFileSwitchesActivation(t *testing.T) {
	s := NewStore(ModeWholeFile)
	tagA, err := s.CreateTag("A")
	require.NoError(t, err)
	tagB, err := s.CreateTag("B")
	require.NoError(t, err)
	require.NoError(t, s.Activate(tagA.ID))

	// Choosing B's label while A is active switches activation, not labels.
	require.NoError(t, s.UpdateLabel(tagA.ID, "B"))
	assert.Equal(t, "A", tagA.Label)
	assert.False(t, tagA.Active)
	assert.True(t, tagB.Active)
}

func TestDeleteAllWithLabelRemovesBoxesToo(t *testing.T) {
	s := NewStore(ModeWholeFile)
	_, err := s.CreateTag("A")
	require.NoError(t, err)
	_, err = s.CreateBox(1, 2, 0, 100, "A")
	require.NoError(t, err)
	_, err = s.CreateTag("B")
	require.NoError(t, err)

	removed := s.DeleteAllWithLabel("A")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.HasTag("B"))
}

func TestReconcileIDSimple(t *testing.T) {
	s := NewStore(ModeBox)
	a, err := s.CreateBox(0, 1, 0, 10, "x")
	require.NoError(t, err)
	tempID := a.ID

	require.NoError(t, s.ReconcileID(tempID, 42))
	assert.EqualValues(t, 42, a.ID)
	assert.Nil(t, s.Get(tempID))
}

func TestReconcileIDCollision(t *testing.T) {
	s := NewStore(ModeBox)
	s.Seed([]*Annotation{
		{ID: 5, Kind: KindBox, StartTime: 0, EndTime: 1, Label: "a"},
		{ID: 7, Kind: KindBox, StartTime: 2, EndTime: 3, Label: "b"},
	})

	require.NoError(t, s.ReconcileID(5, 7))

	holders := 0
	var displaced *Annotation
	for _, a := range s.All() {
		if a.ID == 7 {
			holders++
			assert.Equal(t, "a", a.Label, "id 7 must now belong to the reconciled annotation")
		}
		if a.Label == "b" {
			displaced = a
		}
	}
	assert.Equal(t, 1, holders, "exactly one annotation holds id 7")
	require.NotNil(t, displaced)
	assert.NotEqualValues(t, 7, displaced.ID)
	assert.True(t, displaced.ID < 0, "displaced holder moved to a scratch id")

	// No duplicate ids anywhere.
	seen := map[int64]bool{}
	for _, a := range s.All() {
		assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
		seen[a.ID] = true
	}
}

func TestSeedKeepsTempIDsDisjoint(t *testing.T) {
	s := NewStore(ModeBox)
	s.Seed([]*Annotation{{ID: -3, Kind: KindBox, StartTime: 0, EndTime: 1, Label: "x"}})

	a, err := s.CreateBox(1, 2, 0, 10, "y")
	require.NoError(t, err)
	assert.Less(t, a.ID, int64(-3))
}

func TestSerializeOrdering(t *testing.T) {
	s := NewStore(ModeBox)
	_, err := s.CreateBox(10, 12, 0, 10, "late")
	require.NoError(t, err)
	_, err = s.CreateBox(1, 2, 0, 10, "early")
	require.NoError(t, err)
	_, err = s.CreateBox(5, 6, 0, 10, "middle")
	require.NoError(t, err)

	out, err := s.Serialize()
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "early", out[0].Label)
	assert.Equal(t, "middle", out[1].Label)
	assert.Equal(t, "late", out[2].Label)
}

func TestSerializeWholeFileLabelTiebreak(t *testing.T) {
	s := NewStore(ModeWholeFile)
	_, err := s.CreateTag("B")
	require.NoError(t, err)
	_, err = s.CreateTag("A")
	require.NoError(t, err)

	out, err := s.Serialize()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Label)
	assert.Equal(t, "B", out[1].Label)
}

func TestSerializeReturnsDetachedCopies(t *testing.T) {
	s := NewStore(ModeBox)
	a, err := s.CreateBox(1, 2, 0, 10, "whistle")
	require.NoError(t, err)

	out, err := s.Serialize()
	require.NoError(t, err)
	require.Len(t, out, 1)

	// Later edits must not show through a snapshot already handed out, e.g.
	// while it is being marshalled for an in-flight submission.
	require.NoError(t, s.UpdateLabel(a.ID, "click"))
	s.SetCurrentComment(Comment{Content: "late note"})
	assert.Equal(t, "whistle", out[0].Label)
	assert.Empty(t, out[0].Comments)
}

func TestSerializeEmptyLabelBlocksAndActivates(t *testing.T) {
	s := NewStore(ModeBox)
	bad, err := s.CreateBox(1, 2, 0, 10, "")
	require.NoError(t, err)
	good, err := s.CreateBox(3, 4, 0, 10, "ok")
	require.NoError(t, err)
	require.NoError(t, s.Activate(good.ID))

	_, err = s.Serialize()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, bad.ID, verr.AnnotationID)
	assert.True(t, bad.Active, "offender auto-activated for correction")
	assert.False(t, good.Active)
}

func TestSerializeMissingConfidence(t *testing.T) {
	s := NewStore(ModeBox)
	s.RequireConfidence(true)
	a, err := s.CreateBox(1, 2, 0, 10, "whistle")
	require.NoError(t, err)

	_, err = s.Serialize()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, a.ID, verr.AnnotationID)

	require.NoError(t, s.UpdateConfidence(a.ID, "sure"))
	_, err = s.Serialize()
	require.NoError(t, err)
}

func TestCurrentCommentFallback(t *testing.T) {
	s := NewStore(ModeBox)
	s.SetTaskComment(Comment{ID: 9, Content: "task level"})

	c, onAnnotation := s.CurrentComment()
	assert.False(t, onAnnotation)
	assert.Equal(t, "task level", c.Content)

	a, err := s.CreateBox(1, 2, 0, 10, "x")
	require.NoError(t, err)
	c, onAnnotation = s.CurrentComment()
	assert.True(t, onAnnotation)
	assert.Equal(t, "", c.Content)

	s.SetCurrentComment(Comment{Content: "on the box"})
	require.Len(t, a.Comments, 1)
	assert.Equal(t, "on the box", a.Comments[0].Content)

	s.DeactivateAll()
	s.SetCurrentComment(Comment{Content: "task again"})
	assert.Equal(t, "task again", s.TaskComment().Content)
}
