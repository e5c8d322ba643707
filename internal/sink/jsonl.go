package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"ConsentCrawl/internal/models"
)

// JSONLSink appends one JSON document per record to a writer
type JSONLSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewJSONLSink writes records to w; Close does not close w
func NewJSONLSink(w io.Writer) Service {
	return &JSONLSink{w: w}
}

// NewJSONLFileSink appends records to the file at path, creating it and its directory
func NewJSONLFileSink(path string) (Service, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	return &JSONLSink{w: f, closer: f}, nil
}

// Write encodes the whole window before writing so a failed record appends nothing
func (s *JSONLSink) Write(ctx context.Context, records []*models.SiteRecord) error {
	var buf []byte
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", record.URL, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the sink opened one
func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
