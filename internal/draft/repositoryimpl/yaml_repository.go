package repositoryimpl

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pelagiclabs/annotator/internal/draft"
	"github.com/pelagiclabs/annotator/pkg/cerr"
	"github.com/pelagiclabs/annotator/pkg/storage"
)

const draftsPrefix = "drafts"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(taskID int64) string {
	return fmt.Sprintf("%s/%d.yaml", draftsPrefix, taskID)
}

// Save overwrites the draft of the task. The previous checkpoint is always
// replaced; drafts have no history.
func (r *YAMLRepository) Save(ctx context.Context, d *draft.Draft) error {
	d.SavedAt = time.Now().UTC()
	data, err := yaml.Marshal(d)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal draft: %w", err))
	}
	if err := r.storage.Write(ctx, path(d.TaskID), data); err != nil {
		return cerr.WrapStorageWriteError("draft", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, taskID int64) (*draft.Draft, error) {
	data, err := r.storage.Read(ctx, path(taskID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("draft", err)
	}
	var d draft.Draft
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal draft: %w", err))
	}
	return &d, nil
}

// Delete removes the draft once the task has been submitted successfully.
func (r *YAMLRepository) Delete(ctx context.Context, taskID int64) error {
	if err := r.storage.Delete(ctx, path(taskID)); err != nil {
		return cerr.WrapStorageDeleteError("draft", err)
	}
	return nil
}
