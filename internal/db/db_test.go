package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "storyboard.db")

	database, err := New(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return database, dbPath
}

func TestNew_CreatesTables(t *testing.T) {
	database, _ := openTestDB(t)
	defer database.Close()

	for _, table := range []string{"_migrations", "kv", "exports"} {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	database, _ := openTestDB(t)
	defer database.Close()

	var journalMode string
	if err := database.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	db1, dbPath := openTestDB(t)
	if _, err := db1.Conn().Exec("INSERT INTO kv (key, value) VALUES ('k', 'v')"); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	db1.Close()

	db2, err := New(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var count int
	if err := db2.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations error = %v", err)
	}
	if count != 2 {
		t.Errorf("migration count = %d, want 2", count)
	}

	var value string
	if err := db2.Conn().QueryRow("SELECT value FROM kv WHERE key = 'k'").Scan(&value); err != nil {
		t.Fatalf("row lost across reopen: %v", err)
	}
	if value != "v" {
		t.Errorf("value = %q, want v", value)
	}
}

func TestCheckpoint_TruncatesWAL(t *testing.T) {
	database, dbPath := openTestDB(t)
	defer database.Close()

	if database.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", database.Path(), dbPath)
	}
	if _, err := database.Conn().Exec("INSERT INTO kv (key, value) VALUES ('slot', ?)", make([]byte, 64<<10)); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if _, err := database.Conn().Exec("DELETE FROM kv WHERE key = 'slot'"); err != nil {
		t.Fatalf("delete error = %v", err)
	}

	if err := database.Checkpoint(context.Background()); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	info, err := os.Stat(dbPath + "-wal")
	if err == nil && info.Size() != 0 {
		t.Errorf("wal size after checkpoint = %d, want 0", info.Size())
	}
}
