package taskapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagiclabs/annotator/internal/annotation"
	"github.com/pelagiclabs/annotator/internal/config"
	"github.com/pelagiclabs/annotator/pkg/cerr"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.CampaignEnv{
		BaseURL: srv.URL,
		Token:   "secret",
		Timeout: 5 * time.Second,
	})
}

func TestRetrieve(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/annotation-tasks/12", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		next := int64(13)
		json.NewEncoder(w).Encode(Task{
			ID:         12,
			CampaignID: 3,
			Mode:       annotation.ModeBox,
			Boundaries: Boundaries{EndTime: 600, EndFrequency: 24000},
			Labels:     []string{"whistle", "click"},
			Navigation: Navigation{Next: &next},
		})
	})

	task, err := c.Retrieve(context.Background(), 12)
	require.NoError(t, err)
	assert.EqualValues(t, 12, task.ID)
	assert.Equal(t, 600.0, task.Duration())
	assert.Equal(t, 24000.0, task.FrequencyRange())
	assert.False(t, task.HasConfidence())
	require.NotNil(t, task.Navigation.Next)
	assert.EqualValues(t, 13, *task.Navigation.Next)
}

func TestUpdateSubmitsAnnotations(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/annotation-tasks/12", r.URL.Path)
		var req updateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Annotations, 1)
		assert.Equal(t, "whistle", req.Annotations[0].Label)
		assert.Equal(t, 0.0, req.TaskStartEpoch)
		assert.Equal(t, 600.0, req.TaskEndEpoch)
		next := int64(13)
		json.NewEncoder(w).Encode(UpdateResult{NextTask: &next, CampaignID: 3})
	})

	res, err := c.Update(context.Background(), 12, []*annotation.Annotation{
		{ID: -1, Kind: annotation.KindBox, StartTime: 1, EndTime: 2, Label: "whistle"},
	}, "done", 0, 600)
	require.NoError(t, err)
	require.NotNil(t, res.NextTask)
	assert.EqualValues(t, 13, *res.NextTask)
}

func TestAddAnnotationReturnsAssignedID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/annotation-tasks/12/annotations", r.URL.Path)
		var req addAnnotationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Annotation)
		assert.Equal(t, "A", req.Annotation.Label)
		assert.Equal(t, 0.0, req.TaskStartEpoch)
		assert.Equal(t, 600.0, req.TaskEndEpoch)
		json.NewEncoder(w).Encode(addAnnotationResponse{ID: 42})
	})

	id, err := c.AddAnnotation(context.Background(), 12, annotation.NewTag("A"), 0, 600)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestUnauthorizedMapsToUnauthenticated(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})

	_, err := c.Retrieve(context.Background(), 12)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Unauthenticated))
}

func TestCommentCreateVersusUpdate(t *testing.T) {
	var gotMethod, gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(annotation.Comment{ID: 7, Content: "hi"})
	})

	_, err := c.CreateOrUpdateComment(context.Background(), 12, annotation.Comment{Content: "hi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/annotation-tasks/12/comments", gotPath)

	saved, err := c.CreateOrUpdateComment(context.Background(), 12, annotation.Comment{ID: 7, Content: "hi again"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/annotation-tasks/12/comments/7", gotPath)
	assert.EqualValues(t, 7, saved.ID)
}
