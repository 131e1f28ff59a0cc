package repository

import (
	"context"

	"reqdesk/internal/model"
)

// RequestRepository persists requests together with their attachment association.
type RequestRepository interface {
	// FindByID loads the request with its status and attachments.
	FindByID(ctx context.Context, id int64) (*model.Request, error)
	// FindByOwnerID returns every request owned by the user, oldest first.
	FindByOwnerID(ctx context.Context, ownerID int64) ([]model.Request, error)
	// Save inserts the request when ID is zero and updates it otherwise. The stored
	// attachment association is replaced by req.Attachments: attachments listed there are
	// bound to the request and any previously bound ones are released.
	Save(ctx context.Context, req *model.Request) (*model.Request, error)
	// Delete removes the request row and releases its attachments. Blobs are untouched.
	Delete(ctx context.Context, id int64) error
}
