package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/iliyamo/tm-monitor/internal/database"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "monitoredEvents"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store err = %v, want ErrNotFound", err)
	}
	if err := store.Put(ctx, "monitoredEvents", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "monitoredEvents", []byte(`[{"id":"b"}]`)); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "monitoredEvents")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `[{"id":"b"}]` {
		t.Fatalf("Get = %s, want the last Put", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLStoreSQLite(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	store, err := NewSQLStore(context.Background(), db, DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, store)

	// Re-opening the table keeps existing rows.
	again, err := NewSQLStore(context.Background(), db, DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := again.Get(context.Background(), "monitoredEvents"); err != nil {
		t.Fatalf("record lost after re-init: %v", err)
	}
}

func TestSQLStoreRejectsUnknownDialect(t *testing.T) {
	if _, err := NewSQLStore(context.Background(), nil, Dialect("oracle")); err == nil {
		t.Fatal("expected error")
	}
}
