package mocks

import (
	"context"

	"ConsentCrawl/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockBlocklistCache is a mock implementation of blocklistCache.Service
type MockBlocklistCache struct {
	mock.Mock
}

// Get mocks the Get method of blocklistCache.Service
func (m *MockBlocklistCache) Get(ctx context.Context) (*models.BlocklistSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlocklistSnapshot), args.Error(1)
}

// Set mocks the Set method of blocklistCache.Service
func (m *MockBlocklistCache) Set(ctx context.Context, snapshot *models.BlocklistSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// Delete mocks the Delete method of blocklistCache.Service
func (m *MockBlocklistCache) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
