package mocks

import (
	"encoding/json"

	"innerbloom-server/internal/catalog"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"
	"innerbloom-server/internal/runner"

	"github.com/stretchr/testify/mock"
)

// MockPayloadValidator is a mock type for the PayloadValidator type
type MockPayloadValidator struct {
	mock.Mock
}

// Validate provides a mock function with given fields: payload, schema, cat, ph
func (_m *MockPayloadValidator) Validate(payload any, schema json.RawMessage, cat *catalog.Catalog, ph prompt.Placeholders) model.ValidationResult {
	ret := _m.Called(payload, schema, cat, ph)

	if rf, ok := ret.Get(0).(func(any, json.RawMessage, *catalog.Catalog, prompt.Placeholders) model.ValidationResult); ok {
		return rf(payload, schema, cat, ph)
	}
	return ret.Get(0).(model.ValidationResult)
}

// NewMockPayloadValidator creates a new instance of MockPayloadValidator. Expectations are asserted on cleanup.
func NewMockPayloadValidator(t TestingT) *MockPayloadValidator {
	m := &MockPayloadValidator{}
	register(&m.Mock, t)
	return m
}

var _ runner.PayloadValidator = (*MockPayloadValidator)(nil)
