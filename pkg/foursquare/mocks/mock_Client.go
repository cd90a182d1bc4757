// Package mocks provides test doubles for the foursquare client.
package mocks

import (
	"context"

	foursquare "github.com/sells-group/placefinder/pkg/foursquare"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, req
func (_m *MockClient) Search(ctx context.Context, req foursquare.SearchRequest) ([]foursquare.Place, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 []foursquare.Place
	if rf, ok := ret.Get(0).(func(context.Context, foursquare.SearchRequest) ([]foursquare.Place, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]foursquare.Place)
	}
	return r0, ret.Error(1)
}

// GetPlace provides a mock function with given fields: ctx, fsqID
func (_m *MockClient) GetPlace(ctx context.Context, fsqID string) (*foursquare.Place, error) {
	ret := _m.Called(ctx, fsqID)

	if len(ret) == 0 {
		panic("no return value specified for GetPlace")
	}

	var r0 *foursquare.Place
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*foursquare.Place)
	}
	return r0, ret.Error(1)
}

// Photos provides a mock function with given fields: ctx, fsqID, limit
func (_m *MockClient) Photos(ctx context.Context, fsqID string, limit int) ([]foursquare.Photo, error) {
	ret := _m.Called(ctx, fsqID, limit)

	if len(ret) == 0 {
		panic("no return value specified for Photos")
	}

	var r0 []foursquare.Photo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]foursquare.Photo)
	}
	return r0, ret.Error(1)
}

// Tips provides a mock function with given fields: ctx, fsqID, limit
func (_m *MockClient) Tips(ctx context.Context, fsqID string, limit int) ([]foursquare.Tip, error) {
	ret := _m.Called(ctx, fsqID, limit)

	if len(ret) == 0 {
		panic("no return value specified for Tips")
	}

	var r0 []foursquare.Tip
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]foursquare.Tip)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
