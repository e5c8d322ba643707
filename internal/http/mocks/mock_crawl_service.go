package mocks

import (
	"context"

	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/sink"

	"github.com/stretchr/testify/mock"
)

// MockCrawlService is a mock implementation of crawl.Service.
// The first return value is written to the sink before Run returns.
type MockCrawlService struct {
	mock.Mock
}

// Run mocks the Run method of crawl.Service
func (m *MockCrawlService) Run(ctx context.Context, urls []string, out sink.Service) (models.RunSummary, error) {
	args := m.Called(ctx, urls, out)
	if records, ok := args.Get(0).([]*models.SiteRecord); ok && len(records) > 0 {
		if err := out.Write(ctx, records); err != nil {
			return models.RunSummary{}, err
		}
	}
	return args.Get(1).(models.RunSummary), args.Error(2)
}
