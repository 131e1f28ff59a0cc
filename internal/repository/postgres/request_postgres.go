package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"reqdesk/internal/database"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

// RequestPostgres is a PostgreSQL implementation of repository.RequestRepository.
// Attachment membership is stored as attachments.request_id.
type RequestPostgres struct {
	db *sql.DB
}

// NewRequestPostgres creates a new RequestPostgres repository.
func NewRequestPostgres(db *sql.DB) *RequestPostgres {
	return &RequestPostgres{db: db}
}

var _ repository.RequestRepository = (*RequestPostgres)(nil)

const requestSelect = `
	SELECT r.id, r.request_name, r.owner_id, r.created_at, r.updated_at,
	       s.id, s.name, s.description
	FROM requests r
	JOIN statuses s ON s.id = r.status_id`

func scanRequest(row rowScanner) (*model.Request, error) {
	var (
		req        model.Request
		statusName string
	)
	if err := row.Scan(
		&req.ID,
		&req.RequestName,
		&req.OwnerID,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.Status.ID,
		&statusName,
		&req.Status.Description,
	); err != nil {
		return nil, err
	}
	req.Status.Name = model.StatusName(statusName)
	req.Attachments = []model.Attachment{}
	return &req, nil
}

// FindByID fetches a request together with its attachments.
func (r *RequestPostgres) FindByID(ctx context.Context, id int64) (*model.Request, error) {
	conn := database.Conn(ctx, r.db)

	req, err := scanRequest(conn.QueryRowContext(ctx, requestSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, attachmentSelect+` WHERE a.request_id = $1 ORDER BY a.id`, id)
	if err != nil {
		return nil, err
	}
	if req.Attachments, err = collectAttachments(rows); err != nil {
		return nil, err
	}
	return req, nil
}

// FindByOwnerID returns all requests of an owner, whatever their status, oldest first.
func (r *RequestPostgres) FindByOwnerID(ctx context.Context, ownerID int64) ([]model.Request, error) {
	conn := database.Conn(ctx, r.db)

	rows, err := conn.QueryContext(ctx, requestSelect+` WHERE r.owner_id = $1 ORDER BY r.created_at, r.id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Request, 0)
	index := make(map[int64]int)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		index[req.ID] = len(items)
		items = append(items, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	attRows, err := conn.QueryContext(ctx, attachmentSelect+`
		WHERE a.request_id IN (SELECT id FROM requests WHERE owner_id = $1)
		ORDER BY a.id`, ownerID)
	if err != nil {
		return nil, err
	}
	attachments, err := collectAttachments(attRows)
	if err != nil {
		return nil, err
	}
	for _, a := range attachments {
		if a.RequestID == nil {
			continue
		}
		if i, ok := index[*a.RequestID]; ok {
			items[i].Attachments = append(items[i].Attachments, a)
		}
	}
	return items, nil
}

// Save inserts or updates the request row, then rewrites its attachment membership.
func (r *RequestPostgres) Save(ctx context.Context, req *model.Request) (*model.Request, error) {
	conn := database.Conn(ctx, r.db)
	out := *req

	if req.ID == 0 {
		const q = `
			INSERT INTO requests (request_name, status_id, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		if err := conn.QueryRowContext(ctx, q,
			req.RequestName,
			req.Status.ID,
			req.OwnerID,
			req.CreatedAt,
			req.UpdatedAt,
		).Scan(&out.ID); err != nil {
			return nil, translateWriteErr(err)
		}
	} else {
		const q = `UPDATE requests SET request_name = $2, status_id = $3, updated_at = $4 WHERE id = $1`
		res, err := conn.ExecContext(ctx, q, req.ID, req.RequestName, req.Status.ID, req.UpdatedAt)
		if err != nil {
			return nil, translateWriteErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, sql.ErrNoRows
		}
	}

	if err := syncAttachments(ctx, conn, out.ID, req.AttachmentIDs()); err != nil {
		return nil, err
	}

	out.Attachments = make([]model.Attachment, len(req.Attachments))
	for i, a := range req.Attachments {
		id := out.ID
		a.RequestID = &id
		out.Attachments[i] = a
	}
	return &out, nil
}

// Delete releases the request's attachments and removes the request row.
// It does not return an error if the row does not exist.
func (r *RequestPostgres) Delete(ctx context.Context, id int64) error {
	conn := database.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `UPDATE attachments SET request_id = NULL WHERE request_id = $1`, id); err != nil {
		return fmt.Errorf("release attachments: %w", err)
	}
	_, err := conn.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	return err
}

// syncAttachments makes ids the exact attachment set of the request. ids must be distinct.
// It fails with repository.ErrAttachmentInUse when any of them belongs to another request.
func syncAttachments(ctx context.Context, conn database.DBTX, requestID int64, ids []int64) error {
	if len(ids) == 0 {
		if _, err := conn.ExecContext(ctx, `UPDATE attachments SET request_id = NULL WHERE request_id = $1`, requestID); err != nil {
			return fmt.Errorf("release attachments: %w", err)
		}
		return nil
	}

	args := append([]any{requestID}, int64Args(ids)...)
	in := placeholders(2, len(ids))

	release := `UPDATE attachments SET request_id = NULL WHERE request_id = $1 AND id NOT IN (` + in + `)`
	if _, err := conn.ExecContext(ctx, release, args...); err != nil {
		return fmt.Errorf("release attachments: %w", err)
	}
	// The request_id guard re-checks membership under the row lock, so a concurrent
	// writer that bound one of these rows first makes the count come up short.
	bind := `UPDATE attachments SET request_id = $1 WHERE id IN (` + in + `) AND (request_id IS NULL OR request_id = $1)`
	res, err := conn.ExecContext(ctx, bind, args...)
	if err != nil {
		return fmt.Errorf("bind attachments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind attachments: %w", err)
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("bound %d of %d attachments: %w", n, len(ids), repository.ErrAttachmentInUse)
	}
	return nil
}
