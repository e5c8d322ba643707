package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/google/uuid"
)

// DatabaseLogger implements the Service interface using a database backend
type DatabaseLogger struct {
	db      DatabaseConnection
	pending sync.WaitGroup
}

// NewDatabaseLogger creates a new database logger
func NewDatabaseLogger(db DatabaseConnection) Service {
	return &DatabaseLogger{
		db: db,
	}
}

// LogInfo logs an informational message (no severity)
func (l *DatabaseLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	l.logEntry(ctx, "", operation, "", message, nil, metadata)
}

// LogSuccess logs a successful operation (no severity)
func (l *DatabaseLogger) LogSuccess(ctx context.Context, operation, targetName, message string, metadata map[string]interface{}) {
	l.logEntry(ctx, "", operation, targetName, message, nil, metadata)
}

// LogError logs an error with required severity
func (l *DatabaseLogger) LogError(ctx context.Context, operation, targetName, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	l.logEntry(ctx, severity, operation, targetName, message, err, metadata)
}

// logEntry is the internal method that creates and stores log entries
func (l *DatabaseLogger) logEntry(ctx context.Context, severity models.LogSeverity, operation, targetName, message string, err error, metadata map[string]interface{}) {
	entry := newLogEntry(ctx, severity, operation, targetName, message, err, metadata)

	// Insert asynchronously; Close waits for in-flight inserts
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()

		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.db.InsertLog(logCtx, entry); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to insert log entry: %v\n", err)
		}
	}()
}

// Close flushes pending inserts and closes the database connection
func (l *DatabaseLogger) Close() error {
	l.pending.Wait()
	return l.db.Close()
}

// newLogEntry builds a log entry stamped with the process from ctx
func newLogEntry(ctx context.Context, severity models.LogSeverity, operation, targetName, message string, err error, metadata map[string]interface{}) *models.LogEntry {
	logEvent := GetLogEvent(ctx)

	entry := &models.LogEntry{
		ID:            uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		Severity:      severity,
		Message:       message,
		Operation:     operation,
		TargetName:    targetName,
		ProcessID:     logEvent.ProcessID,
		ProcessType:   logEvent.ProcessType,
		ProcessTarget: logEvent.Target,
		Metadata:      metadata,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

// LogOperations defines constants for common operations
const (
	OpBlocklistLoad    = "blocklist_load"
	OpBlocklistFetch   = "blocklist_fetch"
	OpBlocklistPersist = "blocklist_persist"
	OpCatalogLoad      = "catalog_load"
	OpProbe            = "probe"
	OpConsentResolve   = "consent_resolve"
	OpClassify         = "classify"
	OpScreenshot       = "screenshot"
	OpBatchRun         = "batch_run"
	OpBatchWindow      = "batch_window"
	OpSinkWrite        = "sink_write"
	OpBrowserLaunch    = "browser_launch"
	OpRateLimited      = "rate_limited"
	OpServerStart      = "server_start"
	OpServerShutdown   = "server_shutdown"
	OpHealthCheck      = "health_check"
	OpCrawlRequest     = "crawl_request"
	OpBatchRequest     = "batch_crawl_request"
)
