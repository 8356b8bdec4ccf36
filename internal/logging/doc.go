// Package logging assembles structured slog loggers and formatting helpers used
// across splice.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so delivery code can tag log
// lines with job IDs. Warnings and errors go through WarnWithContext and
// ErrorWithContext so every record carries an event type and a hint for the
// operator. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
package logging
