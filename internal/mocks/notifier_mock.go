package mocks

import (
	"context"

	"innerbloom-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// NotifyTasksGenerated provides a mock function with given fields: ctx, event
func (_m *MockNotifier) NotifyTasksGenerated(ctx context.Context, event messaging.TasksGeneratedEvent) error {
	ret := _m.Called(ctx, event)

	if rf, ok := ret.Get(0).(func(context.Context, messaging.TasksGeneratedEvent) error); ok {
		return rf(ctx, event)
	}
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier. Expectations are asserted on cleanup.
func NewMockNotifier(t TestingT) *MockNotifier {
	m := &MockNotifier{}
	register(&m.Mock, t)
	return m
}

var _ messaging.Notifier = (*MockNotifier)(nil)
