package mocks

import (
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"
	"innerbloom-server/internal/runner"

	"github.com/stretchr/testify/mock"
)

// MockTemplateLoader is a mock type for the TemplateLoader type
type MockTemplateLoader struct {
	mock.Mock
}

// Load provides a mock function with given fields: mode
func (_m *MockTemplateLoader) Load(mode model.Mode) (*prompt.Template, error) {
	ret := _m.Called(mode)

	var r0 *prompt.Template
	if rf, ok := ret.Get(0).(func(model.Mode) *prompt.Template); ok {
		r0 = rf(mode)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*prompt.Template)
	}

	return r0, ret.Error(1)
}

// NewMockTemplateLoader creates a new instance of MockTemplateLoader. Expectations are asserted on cleanup.
func NewMockTemplateLoader(t TestingT) *MockTemplateLoader {
	m := &MockTemplateLoader{}
	register(&m.Mock, t)
	return m
}

var _ runner.TemplateLoader = (*MockTemplateLoader)(nil)
