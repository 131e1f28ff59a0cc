package postgres

import (
	"context"
	"database/sql"

	"reqdesk/internal/database"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
// The deleted column backs model.UserState.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

const userColumns = `id, name, civil_id, expiry_date, deleted`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u       model.User
		deleted bool
	)
	if err := row.Scan(&u.ID, &u.Name, &u.CivilID, &u.ExpiryDate, &deleted); err != nil {
		return nil, err
	}
	u.State = model.UserActive
	if deleted {
		u.State = model.UserRetired
	}
	return &u, nil
}

// FindByID fetches a user by id, retired or not.
func (r *UserPostgres) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// FindByCivilID fetches a user by civil id, retired or not.
func (r *UserPostgres) FindByCivilID(ctx context.Context, civilID string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE civil_id = $1`
	return scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, q, civilID))
}

// FindActiveByID fetches a user that has not been soft deleted.
func (r *UserPostgres) FindActiveByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted = false`
	return scanUser(database.Conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// ExistsActive reports whether a user that has not been soft deleted exists.
func (r *UserPostgres) ExistsActive(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND deleted = false)`
	var exists bool
	if err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Save inserts a new user or updates name, expiry date and state of an existing one.
// The civil id of an existing user is never rewritten.
func (r *UserPostgres) Save(ctx context.Context, user *model.User) (*model.User, error) {
	conn := database.Conn(ctx, r.db)
	deleted := user.State == model.UserRetired

	var row *sql.Row
	if user.ID == 0 {
		const q = `
			INSERT INTO users (name, civil_id, expiry_date, deleted)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + userColumns
		row = conn.QueryRowContext(ctx, q, user.Name, user.CivilID, user.ExpiryDate, deleted)
	} else {
		const q = `
			UPDATE users SET name = $2, expiry_date = $3, deleted = $4
			WHERE id = $1
			RETURNING ` + userColumns
		row = conn.QueryRowContext(ctx, q, user.ID, user.Name, user.ExpiryDate, deleted)
	}

	stored, err := scanUser(row)
	if err != nil {
		return nil, translateWriteErr(err)
	}
	return stored, nil
}
