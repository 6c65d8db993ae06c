// Package mocks provides test doubles for lead sinks.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/prospect-cli/internal/model"
)

// MockSink is a mock type for the Sink interface.
type MockSink struct {
	mock.Mock
}

// ExistingPhones provides a mock function with given fields: ctx
func (_m *MockSink) ExistingPhones(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for ExistingPhones")
	}

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]string, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// AppendLeads provides a mock function with given fields: ctx, leads
func (_m *MockSink) AppendLeads(ctx context.Context, leads []model.Lead) error {
	ret := _m.Called(ctx, leads)

	if len(ret) == 0 {
		panic("no return value specified for AppendLeads")
	}

	if rf, ok := ret.Get(0).(func(context.Context, []model.Lead) error); ok {
		return rf(ctx, leads)
	}
	return ret.Error(0)
}

// Close provides a mock function with given fields:
func (_m *MockSink) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	return ret.Error(0)
}

// NewMockSink creates a new instance of MockSink.
func NewMockSink(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSink {
	mock := &MockSink{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
