package postgres

import (
	"context"
	"database/sql"

	"reqdesk/internal/database"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

// AttachmentPostgres is a PostgreSQL implementation of repository.AttachmentRepository.
type AttachmentPostgres struct {
	db *sql.DB
}

// NewAttachmentPostgres creates a new AttachmentPostgres repository.
func NewAttachmentPostgres(db *sql.DB) *AttachmentPostgres {
	return &AttachmentPostgres{db: db}
}

var _ repository.AttachmentRepository = (*AttachmentPostgres)(nil)

const attachmentSelect = `
	SELECT a.id, a.file_name, a.file_type, a.storage_path, a.upload_date_time, a.request_id,
	       t.id, t.name, t.description
	FROM attachments a
	JOIN attachment_types t ON t.id = a.attachment_type_id`

func scanAttachment(row rowScanner) (*model.Attachment, error) {
	var (
		a         model.Attachment
		requestID sql.NullInt64
	)
	if err := row.Scan(
		&a.ID,
		&a.FileName,
		&a.FileType,
		&a.StoragePath,
		&a.UploadDateTime,
		&requestID,
		&a.AttachmentType.ID,
		&a.AttachmentType.Name,
		&a.AttachmentType.Description,
	); err != nil {
		return nil, err
	}
	if requestID.Valid {
		id := requestID.Int64
		a.RequestID = &id
	}
	return &a, nil
}

func collectAttachments(rows *sql.Rows) ([]model.Attachment, error) {
	defer rows.Close()
	items := make([]model.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID fetches a single attachment with its type.
func (r *AttachmentPostgres) FindByID(ctx context.Context, id int64) (*model.Attachment, error) {
	q := attachmentSelect + ` WHERE a.id = $1`
	return scanAttachment(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// FindAllByID returns the attachments whose ids resolve. Unknown ids are silently omitted.
func (r *AttachmentPostgres) FindAllByID(ctx context.Context, ids []int64) ([]model.Attachment, error) {
	if len(ids) == 0 {
		return []model.Attachment{}, nil
	}
	q := attachmentSelect + ` WHERE a.id IN (` + placeholders(1, len(ids)) + `) ORDER BY a.id`
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	return collectAttachments(rows)
}

// Create inserts a detached attachment record.
func (r *AttachmentPostgres) Create(ctx context.Context, att *model.Attachment) (*model.Attachment, error) {
	const q = `
		INSERT INTO attachments (file_name, file_type, storage_path, upload_date_time, attachment_type_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	out := *att
	out.RequestID = nil
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, q,
		att.FileName,
		att.FileType,
		att.StoragePath,
		att.UploadDateTime,
		att.AttachmentType.ID,
	).Scan(&out.ID); err != nil {
		return nil, translateWriteErr(err)
	}
	return &out, nil
}

// DeleteByID removes an attachment record. It does not return an error if the row does not exist.
func (r *AttachmentPostgres) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM attachments WHERE id = $1`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q, id)
	return err
}

// AttachmentTypePostgres is a PostgreSQL implementation of repository.AttachmentTypeRepository.
type AttachmentTypePostgres struct {
	db *sql.DB
}

// NewAttachmentTypePostgres creates a new AttachmentTypePostgres repository.
func NewAttachmentTypePostgres(db *sql.DB) *AttachmentTypePostgres {
	return &AttachmentTypePostgres{db: db}
}

var _ repository.AttachmentTypeRepository = (*AttachmentTypePostgres)(nil)

// FindByName resolves an attachment type by its unique name.
func (r *AttachmentTypePostgres) FindByName(ctx context.Context, name string) (*model.AttachmentType, error) {
	const q = `SELECT id, name, description FROM attachment_types WHERE name = $1`
	var t model.AttachmentType
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, name).Scan(&t.ID, &t.Name, &t.Description); err != nil {
		return nil, err
	}
	return &t, nil
}
