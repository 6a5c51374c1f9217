package testsupport

import (
	"testing"

	"doorman/internal/config"
	"doorman/internal/store"
)

// MustOpenStore opens a store against the given test config and registers
// cleanup on the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
