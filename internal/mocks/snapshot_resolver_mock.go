package mocks

import (
	"context"

	"innerbloom-server/internal/model"
	"innerbloom-server/internal/runner"
	"innerbloom-server/internal/snapshot"

	"github.com/stretchr/testify/mock"
)

// MockSnapshotResolver is a mock type for the SnapshotResolver type
type MockSnapshotResolver struct {
	mock.Mock
}

// Resolve provides a mock function with given fields: ctx, source, userID
func (_m *MockSnapshotResolver) Resolve(ctx context.Context, source model.Source, userID string) (*snapshot.Resolution, error) {
	ret := _m.Called(ctx, source, userID)

	var r0 *snapshot.Resolution
	if rf, ok := ret.Get(0).(func(context.Context, model.Source, string) *snapshot.Resolution); ok {
		r0 = rf(ctx, source, userID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*snapshot.Resolution)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, model.Source, string) error); ok {
		r1 = rf(ctx, source, userID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockSnapshotResolver creates a new instance of MockSnapshotResolver. Expectations are asserted on cleanup.
func NewMockSnapshotResolver(t TestingT) *MockSnapshotResolver {
	m := &MockSnapshotResolver{}
	register(&m.Mock, t)
	return m
}

var _ runner.SnapshotResolver = (*MockSnapshotResolver)(nil)
