package testsupport

import (
	"context"
	"testing"

	"splice/internal/config"
	"splice/internal/ledger"
)

// MustOpenLedger opens the ledger configured by cfg and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordEvent appends a ledger event for tests.
func RecordEvent(t testing.TB, store *ledger.Store, jobID, status string) {
	t.Helper()

	if err := store.Record(context.Background(), ledger.Event{JobID: jobID, Status: status, Source: "test"}); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
}
