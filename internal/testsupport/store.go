package testsupport

import (
	"testing"

	"reelscope/internal/config"
	"reelscope/internal/history"
)

// MustOpenHistory opens the run archive for cfg and closes it at cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
