package logging

import (
	"context"
	"log/slog"
)

// Structured keys shared by every splice component.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact states what the user loses when a warning fires.
	FieldImpact = "impact"
	FieldPath   = "path"
	FieldError  = "error"
)

type jobIDKey struct{}

// WithJobID annotates ctx with a delivery job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobIDFromContext extracts the delivery job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(jobIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns logger tagged with the job carried by ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := JobIDFromContext(ctx); ok {
		return logger.With(slog.String(FieldJobID, id))
	}
	return logger
}

// NewComponentLogger scopes logger to a named component. A nil logger yields a
// no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
