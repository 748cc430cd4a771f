package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/walletbot/internal/domain"
)

func sampleSession(id string, now time.Time) Session {
	sess := New(id, now)
	sess.Authenticate("tok-"+id, "org", &domain.Profile{ID: "p-" + id, Email: id + "@example.com"})
	sess.PutPending("abcd1234", PendingTransfer{Kind: KindWithdraw, WalletID: "w1", Amount: "5", Recipient: "0xdead", Network: "137", CreatedAt: now})
	return sess
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(filepath.Join(dir, "sessions"))
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := sampleSession("123", now)

	if err := backend.Save(ctx, &want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := backend.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("loaded %d sessions", len(got))
	}
	if mustJSON(t, got[0]) != mustJSON(t, want) {
		t.Fatalf("mismatch:\nwant %s\ngot  %s", mustJSON(t, want), mustJSON(t, got[0]))
	}

	if err := backend.Delete(ctx, "123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := backend.Delete(ctx, "123"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestFileBackendSkipsCorruptRecords(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	ctx := context.Background()
	good := sampleSession("1", time.Now())
	if err := backend.Save(ctx, &good); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "3.json"), []byte(`{"userId":"4"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := backend.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "1" {
		t.Fatalf("expected only the valid record, got %+v", got)
	}
}

func TestFileBackendRejectsUnsafeKeys(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	sess := New("../etc/passwd", time.Now())
	if err := backend.Save(context.Background(), &sess); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("err = %v, want ErrInvalidUserID", err)
	}
}

func TestStoreLoadSurvivesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "77.json"), []byte("]]"), 0o600); err != nil {
		t.Fatal(err)
	}
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	store := NewStore(Options{Backend: backend})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load should not fail on a corrupt record: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("len = %d", store.Len())
	}
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend := NewRedisBackend(client, "test:session:", time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	a := sampleSession("10", now)
	b := sampleSession("20", now)
	for _, s := range []*Session{&a, &b} {
		if err := backend.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.UserID, err)
		}
	}
	mr.Set("test:session:30", "garbage")
	mr.Set("other:key", `{"userId":"99"}`)

	if ttl := mr.TTL("test:session:10"); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}

	got, err := backend.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d sessions, want 2", len(got))
	}
	byID := map[string]Session{}
	for _, s := range got {
		byID[s.UserID] = s
	}
	if mustJSON(t, byID["10"]) != mustJSON(t, a) {
		t.Fatalf("round trip mismatch for 10")
	}

	if err := backend.Delete(ctx, "10"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("test:session:10") {
		t.Fatal("key should be gone")
	}
}
