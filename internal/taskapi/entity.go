// Package taskapi is the JSON client for the annotation campaign service,
// the upstream system that owns tasks, submitted annotations and comments.
package taskapi

import (
	"github.com/pelagiclabs/annotator/internal/annotation"
	"github.com/pelagiclabs/annotator/internal/spectrogram"
)

// Boundaries are the domain bounds of a task's audio file.
type Boundaries struct {
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	StartFrequency float64 `json:"start_frequency"`
	EndFrequency   float64 `json:"end_frequency"`
}

// Navigation links a task to its neighbours in the campaign worklist.
type Navigation struct {
	Prev *int64 `json:"prev"`
	Next *int64 `json:"next"`
}

// Task is a single annotation assignment as served by the campaign service.
type Task struct {
	ID           int64                   `json:"id"`
	CampaignID   int64                   `json:"campaign_id"`
	CampaignName string                  `json:"campaign_name"`
	Filename     string                  `json:"filename"`
	AudioURL     string                  `json:"audio_url"`
	Mode         annotation.Mode         `json:"annotation_scope"`
	Boundaries   Boundaries              `json:"boundaries"`
	Labels       []string                `json:"labels"`
	Confidences  []string                `json:"confidence_indicators"`
	Spectrograms []spectrogram.Config    `json:"spectrograms"`
	Navigation   Navigation              `json:"prev_and_next"`
	Annotations  []*annotation.Annotation `json:"previous_annotations"`
	TaskComment  annotation.Comment      `json:"task_comment"`
}

// Duration is the task's audio length in seconds.
func (t *Task) Duration() float64 {
	return t.Boundaries.EndTime - t.Boundaries.StartTime
}

// FrequencyRange is the task's total frequency extent in Hz.
func (t *Task) FrequencyRange() float64 {
	return t.Boundaries.EndFrequency - t.Boundaries.StartFrequency
}

// HasConfidence reports whether the campaign attaches a confidence-indicator
// set to this task, making confidence mandatory on every annotation.
func (t *Task) HasConfidence() bool {
	return len(t.Confidences) > 0
}

// UpdateResult is the campaign service's answer to a task submission.
type UpdateResult struct {
	NextTask   *int64 `json:"next_task"`
	CampaignID int64  `json:"campaign_id"`
}
