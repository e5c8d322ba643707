package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "crawl_results"

// pool is the subset of pgxpool.Pool the sink uses
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// PostgresSink appends records to a table of text columns
type PostgresSink struct {
	pool  pool
	table string
}

// NewPostgresSink connects to connectionString and creates the results table if needed
func NewPostgresSink(ctx context.Context, connectionString string) (Service, error) {
	config, err := logger.NewPoolConfig(connectionString)
	if err != nil {
		return nil, err
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create results connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("results database ping failed: %w", err)
	}

	s := newPostgresSink(p, defaultTable)
	if err := s.createTableIfNotExists(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to create results table: %w", err)
	}

	return s, nil
}

// newPostgresSink creates the concrete implementation
func newPostgresSink(p pool, table string) *PostgresSink {
	return &PostgresSink{pool: p, table: table}
}

func (s *PostgresSink) createTableIfNotExists(ctx context.Context) error {
	columns := make([]string, len(Columns))
	for n, column := range Columns {
		columns[n] = column + " TEXT"
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, s.table, strings.Join(columns, ", "))
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresSink) insertQuery() string {
	placeholders := make([]string, len(Columns))
	for n := range Columns {
		placeholders[n] = fmt.Sprintf("$%d", n+1)
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, s.table, strings.Join(Columns, ", "), strings.Join(placeholders, ", "))
}

// Write inserts the window in one batch
func (s *PostgresSink) Write(ctx context.Context, records []*models.SiteRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := s.insertQuery()
	batch := &pgx.Batch{}
	for _, record := range records {
		values, err := rowValues(record)
		if err != nil {
			return err
		}
		batch.Queue(query, values...)
	}

	results := s.pool.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert crawl result: %w", err)
		}
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to insert crawl results: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
