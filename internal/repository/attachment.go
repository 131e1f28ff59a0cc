package repository

import (
	"context"

	"reqdesk/internal/model"
)

// AttachmentRepository persists attachment metadata. Blob bytes live in storage.Storage.
type AttachmentRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Attachment, error)
	// FindAllByID returns the subset of ids that resolve, ordered by id. Unknown ids are omitted.
	FindAllByID(ctx context.Context, ids []int64) ([]model.Attachment, error)
	// Create inserts a new attachment record and returns it with its generated id.
	Create(ctx context.Context, att *model.Attachment) (*model.Attachment, error)
	// DeleteByID removes the record. It returns nil if the row did not exist.
	DeleteByID(ctx context.Context, id int64) error
}

// AttachmentTypeRepository resolves attachment types by name.
type AttachmentTypeRepository interface {
	FindByName(ctx context.Context, name string) (*model.AttachmentType, error)
}
