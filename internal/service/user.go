package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reqdesk/internal/database"
	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

// CreateUserInput carries the attributes of a new or returning user.
type CreateUserInput struct {
	Name       string
	CivilID    string
	ExpiryDate model.Date
}

// UpdateUserInput carries the mutable attributes of an active user.
type UpdateUserInput struct {
	Name       string
	ExpiryDate model.Date
}

// UserService is the user registry. Users are never hard deleted; a retired civil id
// re-enters the system through Create and keeps its original id.
type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*UserView, error)
	// Get returns an active user. Retired users are reported as not found.
	Get(ctx context.Context, id int64) (*UserView, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) (*UserView, error)
	// Delete retires an active user. Retiring twice is a not found error.
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users repository.UserRepository
	tx    database.Transactor
}

// NewUserService constructs a new UserService.
func NewUserService(users repository.UserRepository, tx database.Transactor) UserService {
	return &userService{users: users, tx: tx}
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*UserView, error) {
	var saved *model.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.users.FindByCivilID(ctx, in.CivilID)
		switch {
		case err == nil:
			if existing.Active() {
				return duplicateCivilID(in.CivilID)
			}
			existing.Reactivate(in.Name, in.ExpiryDate)
			saved, err = s.users.Save(ctx, existing)
		case errors.Is(err, sql.ErrNoRows):
			saved, err = s.users.Save(ctx, &model.User{
				Name:       in.Name,
				CivilID:    in.CivilID,
				ExpiryDate: in.ExpiryDate,
				State:      model.UserActive,
			})
		default:
			return fmt.Errorf("find user by civil id: %w", err)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost an insert race against a concurrent create for the same civil id.
			return duplicateCivilID(in.CivilID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	view := toUserView(saved)
	return &view, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*UserView, error) {
	u, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	view := toUserView(u)
	return &view, nil
}

func (s *userService) Update(ctx context.Context, id int64, in UpdateUserInput) (*UserView, error) {
	var saved *model.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.findActive(ctx, id)
		if err != nil {
			return err
		}
		u.Name = in.Name
		u.ExpiryDate = in.ExpiryDate
		saved, err = s.users.Save(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := toUserView(saved)
	return &view, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		u, err := s.findActive(ctx, id)
		if err != nil {
			return err
		}
		u.Retire()
		_, err = s.users.Save(ctx, u)
		return err
	})
}

func (s *userService) findActive(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("User", id)
		}
		return nil, err
	}
	return u, nil
}

func duplicateCivilID(civilID string) error {
	return invalid(ReasonDuplicateCivilID, map[string]any{"civilId": civilID},
		"User with civil ID %s already exists", civilID)
}
