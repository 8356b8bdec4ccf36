package testsupport

import (
	"testing"

	"splice/internal/config"
	"splice/internal/delivery"
	"splice/internal/fcpxml"
	"splice/internal/logging"
)

// NewManager builds a delivery manager for cfg with a no-op logger.
func NewManager(t testing.TB, cfg *config.Config, opts ...delivery.Option) *delivery.Manager {
	t.Helper()

	mgr, err := delivery.NewManager(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("delivery.NewManager: %v", err)
	}
	return mgr
}

// SampleDocument compiles the sample intent into an FCPXML document.
func SampleDocument(t testing.TB) string {
	t.Helper()

	result, err := fcpxml.Compile(SampleIntent(t))
	if err != nil {
		t.Fatalf("fcpxml.Compile: %v", err)
	}
	return result.Document
}
