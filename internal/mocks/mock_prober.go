package mocks

import (
	"context"

	"ConsentCrawl/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockProber is a mock implementation of probe.Service
type MockProber struct {
	mock.Mock
}

// Probe mocks the Probe method of probe.Service
func (m *MockProber) Probe(ctx context.Context, url string) *models.SiteRecord {
	args := m.Called(ctx, url)
	if record := args.Get(0); record != nil {
		return record.(*models.SiteRecord)
	}
	return nil
}
