package mocks

import (
	"context"

	"innerbloom-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockModelInvoker is a mock type for the ModelInvoker type
type MockModelInvoker struct {
	mock.Mock
}

// Invoke provides a mock function with given fields: ctx, req
func (_m *MockModelInvoker) Invoke(ctx context.Context, req service.InvokeRequest) (*service.InvokeResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *service.InvokeResult
	if rf, ok := ret.Get(0).(func(context.Context, service.InvokeRequest) *service.InvokeResult); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.InvokeResult)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, service.InvokeRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockModelInvoker creates a new instance of MockModelInvoker. Expectations are asserted on cleanup.
func NewMockModelInvoker(t TestingT) *MockModelInvoker {
	m := &MockModelInvoker{}
	register(&m.Mock, t)
	return m
}

var _ service.ModelInvoker = (*MockModelInvoker)(nil)
