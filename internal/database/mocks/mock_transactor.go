package mocks

import "context"

// MockTransactor runs the unit of work inline. When Err is set, fn is skipped and Err returned.
type MockTransactor struct {
	Err   error
	Calls int
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}
