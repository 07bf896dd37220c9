package draft

import "context"

type Repository interface {
	Save(ctx context.Context, d *Draft) error
	Get(ctx context.Context, taskID int64) (*Draft, error)
	Delete(ctx context.Context, taskID int64) error
}
