// Package intent defines the declarative edit intent accepted by splice and
// validates it before compilation.
//
// Intents arrive as JSON. Validate applies field defaults (1080p25, stereo
// 48 kHz, zero start times) and then checks the project format, audio
// settings, assets, segments, markers and operations in that order, returning
// the first violation as a *SchemaError. Operations such as pause removal are
// accepted but never executed; Warnings reports them so callers can surface
// the gap to the user.
package intent
