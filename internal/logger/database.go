package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConnection implements DatabaseConnection for PostgreSQL using pgxpool
type PostgresConnection struct {
	pool *pgxpool.Pool
}

// NewPostgresConnection creates a new log database connection using a connection string
func NewPostgresConnection(connectionString string) (DatabaseConnection, error) {
	return newPostgresConnection(connectionString)
}

// newPostgresConnection creates the concrete implementation
func newPostgresConnection(connectionString string) (*PostgresConnection, error) {
	config, err := NewPoolConfig(connectionString)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create log connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("log database ping failed on port %d: %w", config.ConnConfig.Port, err)
	}

	conn := &PostgresConnection{pool: pool}
	if err := conn.createTableIfNotExists(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create logs table: %w", err)
	}

	return conn, nil
}

// NewPoolConfig parses a connection string into a pool configuration tuned for
// managed Postgres. The results sink shares it.
func NewPoolConfig(connectionString string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse database connection string: %v", models.ErrConfig, err)
	}

	config.MaxConns = 10
	config.MinConns = 1

	// Recycle connections that a cloud load balancer may drop silently
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	// Disable statement caching to avoid "already exists" errors behind poolers
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	config.ConnConfig.StatementCacheCapacity = 0

	config.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		d := &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		return d.DialContext(ctx, "tcp", addr)
	}

	return config, nil
}

// createTableIfNotExists creates the logs table if it doesn't exist
func (p *PostgresConnection) createTableIfNotExists(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS application_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			severity VARCHAR(10) CHECK (severity IN ('low', 'medium', 'high')),
			message TEXT NOT NULL,
			operation VARCHAR(100) NOT NULL,
			target_name TEXT,
			process_id UUID NOT NULL,
			process_type VARCHAR(20) NOT NULL CHECK (process_type IN ('request', 'internal', 'probe')),
			process_target TEXT,
			error_details TEXT,
			metadata JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_application_logs_timestamp ON application_logs(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_application_logs_severity ON application_logs(severity) WHERE severity IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_application_logs_operation ON application_logs(operation);
		CREATE INDEX IF NOT EXISTS idx_application_logs_process_id ON application_logs(process_id);
	`

	_, err := p.pool.Exec(ctx, query)
	return err
}

// InsertLog inserts a log entry into the database
func (p *PostgresConnection) InsertLog(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO application_logs
		(id, timestamp, severity, message, operation, target_name, process_id, process_type, process_target, error_details, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(
		ctx, query,
		entry.ID,
		entry.Timestamp,
		nullable(string(entry.Severity)),
		entry.Message,
		entry.Operation,
		nullable(entry.TargetName),
		entry.ProcessID,
		string(entry.ProcessType),
		nullable(entry.ProcessTarget),
		nullable(entry.Error),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

// Ping checks if the database connection is alive
func (p *PostgresConnection) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the database connection
func (p *PostgresConnection) Close() error {
	p.pool.Close()
	return nil
}

// nullable maps empty strings to SQL NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeMetadata marshals metadata to a JSON string for the JSONB column
func encodeMetadata(metadata map[string]interface{}) (interface{}, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return string(jsonBytes), nil
}
