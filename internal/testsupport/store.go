package testsupport

import (
	"context"
	"testing"

	"vidsub/internal/config"
	"vidsub/internal/queue"
)

// MustOpenStore opens the configured task store and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) queue.Store {
	t.Helper()

	store, err := queue.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
