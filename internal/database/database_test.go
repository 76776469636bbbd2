package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/plonkgame/plonk/internal/database"
	"github.com/plonkgame/plonk/internal/migrations"
)

func TestOpenMemory(t *testing.T) {
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestReopenSameFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "plonk.db")

	for i := range 5 {
		db, err := database.Open(ctx, path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := migrations.RunContext(ctx, db); err != nil {
			db.Close()
			t.Fatalf("migrate %d: %v", i, err)
		}
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reference_tables").Scan(&n); err != nil {
			db.Close()
			t.Fatalf("query %d: %v", i, err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestOpenWhileAnotherHandleIsOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "plonk.db")

	first, err := database.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	if err := migrations.RunContext(ctx, first); err != nil {
		t.Fatal(err)
	}

	second, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	version, err := migrations.Version(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}
}
