package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"obscore/pkg/domain"
	"obscore/testutil"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store := openStore(t, path)
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	for _, id := range []domain.ProgramID{"A", "B"} {
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreateProgram(testutil.Program(id))
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateProgram("A", func(p *domain.Program) error {
			return p.MarkAtomObserved("o-2", "o-2-a1", domain.QAPass)
		})
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteProgram("B")
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reloaded := openStore(t, path)
	programs := reloaded.ListPrograms()
	if len(programs) != 1 || programs[0].ID != "A" {
		t.Fatalf("expected only program A after reload, got %d", len(programs))
	}
	o, err := programs[0].GetObservation("o-2")
	if err != nil || !o.IsObserved() {
		t.Fatalf("observed atom lost in reload: %v", err)
	}
	if err := programs[0].Validate(); err != nil {
		t.Fatalf("reloaded program invalid: %v", err)
	}
}

func TestSQLiteStoreSkipsPersistOnFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	store := openStore(t, path)
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateProgram(testutil.Program("A")); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM programs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows, got %d", n)
	}
}

func TestSQLiteStoreRejectsCorruptRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store := openStore(t, path)
	if _, err := store.DB().Exec(`INSERT INTO programs(id,payload) VALUES('bad', 'not json')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewStore(path, nil); err == nil {
		t.Fatalf("expected corrupt payload to fail loading")
	}
}
