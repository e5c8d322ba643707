package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of fetcher.Service
type MockFetcher struct {
	mock.Mock
}

// FetchText mocks the FetchText method of fetcher.Service
func (m *MockFetcher) FetchText(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}
