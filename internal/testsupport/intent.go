package testsupport

import (
	"testing"

	"splice/internal/intent"
)

// SampleIntentJSON is a 25 fps intent with two primary clips: A at 0 for 5s
// and B at 5s for 2s, plus one marker.
const SampleIntentJSON = `{
  "version": "1",
  "project": {
    "name": "Sample",
    "format": {"width": 1920, "height": 1080, "fps": 25}
  },
  "assets": [
    {"id": "r2", "name": "A", "path": "/media/a.mov", "format_ref": "r1"},
    {"id": "r3", "name": "B", "path": "/media/b.mov", "format_ref": "r1"}
  ],
  "timeline": {
    "segments": [
      {"asset_id": "r3", "offset": "12500/2500s", "duration": "5000/2500s"},
      {"asset_id": "r2", "offset": "0/2500s", "duration": "12500/2500s"}
    ],
    "markers": [
      {"name": "Intro", "start": "2500/2500s"}
    ]
  }
}`

// SampleIntent validates SampleIntentJSON and fails the test on error.
func SampleIntent(t testing.TB) *intent.EditIntent {
	t.Helper()
	return MustValidate(t, SampleIntentJSON)
}

// MustValidate validates raw intent JSON and fails the test on error.
func MustValidate(t testing.TB, raw string) *intent.EditIntent {
	t.Helper()
	in, err := intent.Validate([]byte(raw))
	if err != nil {
		t.Fatalf("validate intent: %v", err)
	}
	return in
}
