package testsupport

import (
	"context"
	"testing"

	"tbag/internal/config"
	"tbag/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueRun creates a pending run for tests using the provided store.
func EnqueueRun(t testing.TB, store *queue.Store, project, stackID, operator, device string) *queue.Run {
	t.Helper()

	run, err := store.Enqueue(context.Background(), project, stackID, operator, device)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return run
}
