package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings so logs stay queryable.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldActor     = "actor"
	FieldWorkerID  = "worker_id"

	// Records
	FieldDomainID   = "domain_id"
	FieldDomainName = "domain_name"
	FieldScheduleID = "schedule_id"
	FieldHistoryID  = "history_id"
	FieldAction     = "action"
	FieldFields     = "fields"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldExecuteAt  = "execute_at"
	FieldNextRun    = "next_run"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount     = "count"
	FieldBatchSize = "batch_size"

	// Status
	FieldStatus = "status"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"

	FieldSymbol = "symbol"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	actorKey     contextKey = "logger_actor"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActor adds the acting identity to the context for logging
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if actor, ok := ctx.Value(actorKey).(string); ok && actor != "" {
		fields = append(fields, FieldActor, actor)
	}

	return fields
}

// FromContext returns base enriched with the request-scoped fields in ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
//	ticker := schedule.NewTicker(d, cfg, logger.ComponentLogger("pulse.ticker"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
