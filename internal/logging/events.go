package logging

import (
	"log/slog"
)

const (
	defaultHint   = "check the daemon log for details"
	defaultImpact = "the job continued with reduced guarantees"
)

// WarnWithContext logs a warning that always carries an event type, an
// operator hint, and an impact statement. Explicit attrs win over defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultHint),
		String(FieldImpact, defaultImpact),
	)
	logger.Warn(msg, toArgs(attrs)...)
}

// ErrorWithContext logs an error that always carries an event type and an
// operator hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultHint),
	)
	logger.Error(msg, toArgs(attrs)...)
}

func withDefaults(attrs []Attr, defaults ...Attr) []Attr {
	present := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		present[attr.Key] = true
	}
	for _, def := range defaults {
		if !present[def.Key] {
			attrs = append(attrs, def)
		}
	}
	return attrs
}
