package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pelagiclabs/annotator/internal/annotation"
	"github.com/pelagiclabs/annotator/internal/config"
	"github.com/pelagiclabs/annotator/pkg/cerr"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(env *config.CampaignEnv) *Client {
	return &Client{
		baseURL:    env.BaseURL,
		token:      env.Token,
		httpClient: &http.Client{Timeout: env.Timeout},
	}
}

// Retrieve fetches a task and its previously submitted annotations.
func (c *Client) Retrieve(ctx context.Context, taskID int64) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/annotation-tasks/%d", taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

type updateRequest struct {
	Annotations    []*annotation.Annotation `json:"annotations"`
	TaskComment    string                   `json:"task_comment"`
	TaskStartEpoch float64                  `json:"task_start_epoch"`
	TaskEndEpoch   float64                  `json:"task_end_epoch"`
}

// Update submits the full annotation set of a task together with the task's
// time boundaries. The annotations must already be in submission order.
func (c *Client) Update(ctx context.Context, taskID int64, anns []*annotation.Annotation, taskComment string, startEpoch, endEpoch float64) (*UpdateResult, error) {
	req := updateRequest{
		Annotations:    anns,
		TaskComment:    taskComment,
		TaskStartEpoch: startEpoch,
		TaskEndEpoch:   endEpoch,
	}
	var res UpdateResult
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/annotation-tasks/%d", taskID), req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type addAnnotationRequest struct {
	Annotation     *annotation.Annotation `json:"annotation"`
	TaskStartEpoch float64                `json:"task_start_epoch"`
	TaskEndEpoch   float64                `json:"task_end_epoch"`
}

type addAnnotationResponse struct {
	ID int64 `json:"id"`
}

// AddAnnotation persists a single annotation immediately and returns the
// permanent identifier the service assigned. Used by presence workflows that
// need a real identifier before the task is submitted.
func (c *Client) AddAnnotation(ctx context.Context, taskID int64, ann *annotation.Annotation, startEpoch, endEpoch float64) (int64, error) {
	req := addAnnotationRequest{
		Annotation:     ann,
		TaskStartEpoch: startEpoch,
		TaskEndEpoch:   endEpoch,
	}
	var res addAnnotationResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/annotation-tasks/%d/annotations", taskID), req, &res)
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

type commentRequest struct {
	CommentID        int64  `json:"comment_id,omitempty"`
	Content          string `json:"comment"`
	AnnotationTask   int64  `json:"annotation_task"`
	AnnotationResult *int64 `json:"annotation_result"`
}

// CreateOrUpdateComment writes a comment attached either to an annotation
// (annotationID non-nil) or to the task itself. A zero comment identifier
// creates; a non-zero one updates in place.
func (c *Client) CreateOrUpdateComment(ctx context.Context, taskID int64, comment annotation.Comment, annotationID *int64) (annotation.Comment, error) {
	req := commentRequest{
		CommentID:        comment.ID,
		Content:          comment.Content,
		AnnotationTask:   taskID,
		AnnotationResult: annotationID,
	}
	method := http.MethodPost
	path := fmt.Sprintf("/annotation-tasks/%d/comments", taskID)
	if comment.ID != 0 {
		method = http.MethodPut
		path = fmt.Sprintf("/annotation-tasks/%d/comments/%d", taskID, comment.ID)
	}
	var res annotation.Comment
	if err := c.do(ctx, method, path, req, &res); err != nil {
		return annotation.Comment{}, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return cerr.NewError(cerr.Internal, "failed to encode request", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "campaign service unreachable", err)
	}
	defer res.Body.Close()

	if code := cerr.NewCodeFromHTTPStatus(res.StatusCode); code != cerr.OK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return cerr.NewError(code, fmt.Sprintf("campaign service returned %d: %s", res.StatusCode, bytes.TrimSpace(msg)), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.Internal, "failed to decode response", err)
	}
	return nil
}
