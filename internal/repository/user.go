package repository

import (
	"context"

	"reqdesk/internal/model"
)

// UserRepository persists users. Accessors with "Active" in their name never see retired rows.
type UserRepository interface {
	// FindByID returns the user regardless of state.
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// FindByCivilID returns the user regardless of state; civil ids are unique across all rows.
	FindByCivilID(ctx context.Context, civilID string) (*model.User, error)
	// FindActiveByID returns the user only when it is not retired.
	FindActiveByID(ctx context.Context, id int64) (*model.User, error)
	// ExistsActive reports whether a non retired user with this id exists.
	ExistsActive(ctx context.Context, id int64) (bool, error)
	// Save inserts the user when ID is zero and updates it otherwise.
	// A civil id collision surfaces as ErrDuplicate.
	Save(ctx context.Context, user *model.User) (*model.User, error)
}
