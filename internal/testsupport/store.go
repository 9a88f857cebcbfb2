package testsupport

import (
	"testing"

	"kgsa/internal/config"
	"kgsa/internal/journal"
)

// MustOpenJournal opens a journal.Journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Journal {
	t.Helper()

	j, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}
