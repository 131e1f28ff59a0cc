package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reqdesk/internal/service"
)

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) Create(ctx context.Context, in service.CreateRequestInput) (*service.RequestView, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RequestView), args.Error(1)
}

func (m *MockRequestService) Get(ctx context.Context, id int64) (*service.RequestView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RequestView), args.Error(1)
}

func (m *MockRequestService) ListByOwner(ctx context.Context, ownerID int64) ([]service.RequestView, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.RequestView), args.Error(1)
}

func (m *MockRequestService) Update(ctx context.Context, id int64, in service.UpdateRequestInput) (*service.RequestView, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RequestView), args.Error(1)
}

func (m *MockRequestService) Cancel(ctx context.Context, id int64) (*service.RequestView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RequestView), args.Error(1)
}

func (m *MockRequestService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
