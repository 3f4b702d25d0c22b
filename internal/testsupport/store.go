package testsupport

import (
	"context"
	"testing"

	"vidshrink/internal/batch"
	"vidshrink/internal/config"
	"vidshrink/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordBatch persists a finished batch whose outcomes are already known.
func RecordBatch(t testing.TB, store *history.Store, job *batch.Job, outcomes ...batch.Outcome) {
	t.Helper()

	ctx := context.Background()
	if err := store.CreateBatch(ctx, job); err != nil {
		t.Fatalf("store.CreateBatch: %v", err)
	}
	for _, outcome := range outcomes {
		if err := store.RecordOutcome(ctx, job.ID, outcome); err != nil {
			t.Fatalf("store.RecordOutcome: %v", err)
		}
	}
	if err := store.CompleteBatch(ctx, job.ID); err != nil {
		t.Fatalf("store.CompleteBatch: %v", err)
	}
}
