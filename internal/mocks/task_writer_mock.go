package mocks

import (
	"context"

	"innerbloom-server/internal/repository"
	"innerbloom-server/internal/runner"

	"github.com/stretchr/testify/mock"
)

// MockTaskWriter is a mock type for the TaskWriter type
type MockTaskWriter struct {
	mock.Mock
}

// InsertTasks provides a mock function with given fields: ctx, batch
func (_m *MockTaskWriter) InsertTasks(ctx context.Context, batch repository.TaskBatch) (*repository.InsertResult, error) {
	ret := _m.Called(ctx, batch)

	var r0 *repository.InsertResult
	if rf, ok := ret.Get(0).(func(context.Context, repository.TaskBatch) *repository.InsertResult); ok {
		r0 = rf(ctx, batch)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*repository.InsertResult)
	}

	return r0, ret.Error(1)
}

// NewMockTaskWriter creates a new instance of MockTaskWriter. Expectations are asserted on cleanup.
func NewMockTaskWriter(t TestingT) *MockTaskWriter {
	m := &MockTaskWriter{}
	register(&m.Mock, t)
	return m
}

var _ runner.TaskWriter = (*MockTaskWriter)(nil)
