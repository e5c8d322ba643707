package logger

import (
	"context"
	"fmt"

	"ConsentCrawl/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleLogger implements the Service interface on top of zap
type ConsoleLogger struct {
	log *zap.Logger
}

// NewConsoleLogger creates a zap-backed logger writing to stderr.
// encoding is "json" or "console"; level is any zap level name.
func NewConsoleLogger(level, encoding string) (Service, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid log level %q", models.ErrConfig, level)
	}

	cfg := zap.NewProductionConfig()
	if encoding == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return newConsoleLogger(z), nil
}

// newConsoleLogger wraps an existing zap logger
func newConsoleLogger(z *zap.Logger) *ConsoleLogger {
	return &ConsoleLogger{log: z}
}

// LogInfo logs an informational message
func (c *ConsoleLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	c.log.Info(message, c.fields(ctx, operation, "", metadata)...)
}

// LogSuccess logs a successful operation
func (c *ConsoleLogger) LogSuccess(ctx context.Context, operation, targetName, message string, metadata map[string]interface{}) {
	c.log.Info(message, c.fields(ctx, operation, targetName, metadata)...)
}

// LogError logs an error. High severity maps to zap's error level, the rest to warn.
func (c *ConsoleLogger) LogError(ctx context.Context, operation, targetName, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	fields := c.fields(ctx, operation, targetName, metadata)
	fields = append(fields, zap.String("severity", string(severity)), zap.Error(err))

	if severity == models.LogSeverityHigh {
		c.log.Error(message, fields...)
		return
	}
	c.log.Warn(message, fields...)
}

// Close flushes buffered entries
func (c *ConsoleLogger) Close() error {
	// stderr sync fails on some terminals; that is not a logging failure
	_ = c.log.Sync()
	return nil
}

func (c *ConsoleLogger) fields(ctx context.Context, operation, targetName string, metadata map[string]interface{}) []zap.Field {
	logEvent := GetLogEvent(ctx)

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("process_id", logEvent.ProcessID),
		zap.String("process_type", string(logEvent.ProcessType)),
	}
	if logEvent.Target != "" {
		fields = append(fields, zap.String("process_target", logEvent.Target))
	}
	if targetName != "" {
		fields = append(fields, zap.String("target", targetName))
	}
	if len(metadata) > 0 {
		fields = append(fields, zap.Any("metadata", metadata))
	}
	return fields
}
