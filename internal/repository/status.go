package repository

import (
	"context"

	"reqdesk/internal/model"
)

// StatusRepository resolves catalog statuses.
type StatusRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Status, error)
	FindByName(ctx context.Context, name model.StatusName) (*model.Status, error)
}
