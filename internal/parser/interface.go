package parser

import "ConsentCrawl/internal/models"

// Service defines the interface for turning raw blocklist text into domains
// External packages should use this interface, not the concrete implementations
type Service interface {
	Parse(format models.BlocklistFormat, content string) ([]string, error)
}
