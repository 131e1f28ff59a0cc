package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reqdesk/internal/model"
)

type MockStatusRepository struct {
	mock.Mock
}

func (m *MockStatusRepository) FindByID(ctx context.Context, id int64) (*model.Status, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Status), args.Error(1)
}

func (m *MockStatusRepository) FindByName(ctx context.Context, name model.StatusName) (*model.Status, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Status), args.Error(1)
}
