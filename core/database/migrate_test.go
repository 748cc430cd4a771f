package database

import (
	"testing"
	"testing/fstest"
)

func TestListMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_index.up.sql":      {Data: []byte("-- up")},
		"migrations/0001_sessions.up.sql":   {Data: []byte("-- up")},
		"migrations/0001_sessions.down.sql": {Data: []byte("-- down")},
	}
	files := listMigrationFiles(fsys, "migrations")
	if len(files) != 2 || files[0] != "0001_sessions.up.sql" || files[1] != "0002_index.up.sql" {
		t.Fatalf("unexpected files: %v", files)
	}
}

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_sessions.up.sql", "0002_index.up.sql", "0003_audit.up.sql"}
	got := selectApplied(files, 1, 3)
	if len(got) != 2 || got[0] != "0002_index.up.sql" {
		t.Fatalf("unexpected applied set: %v", got)
	}
	if got := selectApplied(files, 3, 3); len(got) != 0 {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}

func TestDSNAndURL(t *testing.T) {
	cfg := Config{User: "bot", Password: "pw", Host: "db", Port: "5432", Name: "wallet", SSLMode: "disable"}
	if got := DSN(cfg); got != "user=bot password=pw host=db port=5432 dbname=wallet sslmode=disable" {
		t.Fatalf("DSN = %q", got)
	}
	if got := URL(cfg); got != "postgres://bot:pw@db:5432/wallet?sslmode=disable" {
		t.Fatalf("URL = %q", got)
	}
}
