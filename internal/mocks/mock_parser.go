package mocks

import (
	"ConsentCrawl/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockParser is a mock implementation of parser.Service
type MockParser struct {
	mock.Mock
}

// Parse mocks the Parse method of parser.Service
func (m *MockParser) Parse(format models.BlocklistFormat, content string) ([]string, error) {
	args := m.Called(format, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
