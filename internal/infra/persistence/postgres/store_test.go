package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"obscore/pkg/domain"
	"obscore/testutil"
)

func openStubStore(t *testing.T) (*Store, *stubConn) {
	t.Helper()
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	defer restore()
	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreCreatesTableAndLoadsRows(t *testing.T) {
	db, conn := newStubDB()
	data, err := json.Marshal(testutil.Program("GN-2024A-Q-1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	conn.rows["GN-2024A-Q-1"] = data

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore("postgres://example", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.DB() != db {
		t.Fatalf("expected stub db to be used")
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS programs") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected programs table to be created, got %v", conn.execs)
	}
	p, ok := store.GetProgram("GN-2024A-Q-1")
	if !ok {
		t.Fatalf("expected program loaded from table")
	}
	if exec, err := p.ExecTime(); err != nil || exec.Hours() != 3.25 {
		t.Fatalf("unexpected exec time %v %v", exec, err)
	}
}

func TestRunInTransactionPersistsAndDeletes(t *testing.T) {
	store, conn := openStubStore(t)
	ctx := context.Background()
	for _, id := range []domain.ProgramID{"A", "B"} {
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreateProgram(testutil.Program(id))
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, ok := conn.payload("B"); !ok {
		t.Fatalf("expected B persisted")
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteProgram("B")
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := conn.payload("B"); ok {
		t.Fatalf("expected B row removed")
	}
	raw, ok := conn.payload("A")
	if !ok {
		t.Fatalf("expected A persisted")
	}
	var decoded domain.Program
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode persisted payload: %v", err)
	}
	if decoded.ID != "A" || decoded.ProgramAwarded().Hours() != 10 {
		t.Fatalf("unexpected persisted program %+v", decoded.ID)
	}
}

func TestPersistFailuresSurface(t *testing.T) {
	ctx := context.Background()
	create := func(id domain.ProgramID) func(domain.Transaction) error {
		return func(tx domain.Transaction) error {
			_, err := tx.CreateProgram(testutil.Program(id))
			return err
		}
	}

	store, conn := openStubStore(t)
	conn.failBegin = true
	if _, err := store.RunInTransaction(ctx, create("A")); err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin failure, got %v", err)
	}

	store, conn = openStubStore(t)
	conn.failUpsert = true
	if _, err := store.RunInTransaction(ctx, create("A")); err == nil || !strings.Contains(err.Error(), "upsert A") {
		t.Fatalf("expected upsert failure, got %v", err)
	}

	store, conn = openStubStore(t)
	conn.failCommit = true
	if _, err := store.RunInTransaction(ctx, create("A")); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := newStubDB()
	conn.failPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
