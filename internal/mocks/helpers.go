// Package mocks holds testify mocks for the pipeline stages.
package mocks

import "github.com/stretchr/testify/mock"

// TestingT is what the constructors need from *testing.T.
type TestingT interface {
	mock.TestingT
	Helper()
	Cleanup(func())
}

func register(m *mock.Mock, t TestingT) {
	m.Test(t)
	t.Helper()
	t.Cleanup(func() { m.AssertExpectations(t) })
}
