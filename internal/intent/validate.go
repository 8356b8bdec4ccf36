package intent

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"splice/internal/rational"
)

// SchemaError reports the first field of an intent that violates its schema.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid edit intent: " + e.Reason
	}
	return fmt.Sprintf("invalid edit intent: %s: %s", e.Field, e.Reason)
}

// ErrorKind classifies the error; the CLI exits with status 2 for validation failures.
func (e *SchemaError) ErrorKind() string { return "validation" }

func schemaErr(field, format string, args ...any) *SchemaError {
	return &SchemaError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate decodes raw intent JSON, applies defaults, and checks every
// constraint in a fixed order. The first violation is returned.
func Validate(raw []byte) (*EditIntent, error) {
	in := EditIntent{
		Version: "1",
		Project: Project{Format: NewProjectFormat(1920, 1080, 25), Audio: defaultAudioSettings()},
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	if err := in.Check(); err != nil {
		return nil, err
	}
	return &in, nil
}

// Check validates an intent built in code. Defaults are not applied.
func (e *EditIntent) Check() error {
	steps := []func() error{
		e.checkFormat,
		e.checkAudio,
		e.checkAssets,
		e.checkSegments,
		e.checkMarkers,
		e.checkOperations,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *EditIntent) checkFormat() error {
	f := &e.Project.Format
	switch {
	case f.Width < 1:
		return schemaErr("project.format.width", "must be >= 1, got %d", f.Width)
	case f.Height < 1:
		return schemaErr("project.format.height", "must be >= 1, got %d", f.Height)
	case f.FPS <= 0:
		return schemaErr("project.format.fps", "must be > 0, got %v", f.FPS)
	}
	f.deriveFrameDuration()
	if !rational.Valid(f.FrameDurationRational) {
		return schemaErr("project.format.frame_duration_rational", "invalid rational time %q", f.FrameDurationRational)
	}
	return nil
}

func (e *EditIntent) checkAudio() error {
	a := e.Project.Audio
	if !a.Layout.valid() {
		return schemaErr("project.audio.layout", "must be one of mono, stereo, surround, got %q", a.Layout)
	}
	if a.Channels < 1 {
		return schemaErr("project.audio.channels", "must be >= 1, got %d", a.Channels)
	}
	return nil
}

func (e *EditIntent) checkAssets() error {
	seen := make(map[string]struct{}, len(e.Assets))
	for i := range e.Assets {
		a := &e.Assets[i]
		field := fmt.Sprintf("assets[%d]", i)
		if a.ID == "" {
			return schemaErr(field+".id", "must not be empty")
		}
		if a.ID == FormatResourceID {
			return schemaErr(field+".id", "%q is reserved for the project format", a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return schemaErr(field+".id", "duplicate asset id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
		if !filepath.IsAbs(a.Path) {
			return schemaErr(field+".path", "must be absolute, got %q", a.Path)
		}
		if a.DurationRational != "" && !rational.Valid(a.DurationRational) {
			return schemaErr(field+".duration_rational", "invalid rational time %q", a.DurationRational)
		}
		a.fillUID()
	}
	return nil
}

func (e *EditIntent) checkSegments() error {
	for i, seg := range e.Timeline.Segments {
		field := fmt.Sprintf("timeline.segments[%d]", i)
		times := []struct{ name, value string }{
			{"offset", seg.Offset},
			{"start", seg.Start},
			{"duration", seg.Duration},
		}
		for _, tv := range times {
			if !rational.Valid(tv.value) {
				return schemaErr(field+"."+tv.name, "invalid rational time %q", tv.value)
			}
		}
		if seg.Volume != nil && (*seg.Volume < 0 || *seg.Volume > 2) {
			return schemaErr(field+".volume", "must be within [0, 2], got %v", *seg.Volume)
		}
		if seg.Role != "" && !seg.Role.valid() {
			return schemaErr(field+".role", "must be one of dialogue, music, effects, got %q", seg.Role)
		}
		if _, ok := e.Asset(seg.AssetID); !ok {
			return schemaErr(field+".asset_id", "references unknown asset %q", seg.AssetID)
		}
	}
	return nil
}

func (e *EditIntent) checkMarkers() error {
	for i, m := range e.Timeline.Markers {
		field := fmt.Sprintf("timeline.markers[%d]", i)
		if !rational.Valid(m.Start) {
			return schemaErr(field+".start", "invalid rational time %q", m.Start)
		}
		if !rational.Valid(m.Duration) {
			return schemaErr(field+".duration", "invalid rational time %q", m.Duration)
		}
	}
	return nil
}

func (e *EditIntent) checkOperations() error {
	ops := e.Operations
	if ops == nil {
		return nil
	}
	if v := ops.RemovePausesOverSeconds; v != nil && *v < 0 {
		return schemaErr("operations.remove_pauses_over_seconds", "must be >= 0, got %v", *v)
	}
	if v := ops.LoudnessTargetLUFS; v != nil && *v > 0 {
		return schemaErr("operations.loudness_target_lufs", "must be <= 0, got %v", *v)
	}
	return nil
}
