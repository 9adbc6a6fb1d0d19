package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	sess := New("tok123", "ref456", json.RawMessage(`{"id":1}`))

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Get(context.Background(), HashToken("tok123"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored session")
	}
	if got.RefreshToken != "ref456" {
		t.Fatalf("expected refresh token preserved, got %q", got.RefreshToken)
	}
	if string(got.User) != `{"id":1}` {
		t.Fatalf("expected user snapshot preserved, got %s", got.User)
	}
}

func TestInMemoryStoreGetMissesUnknownToken(t *testing.T) {
	store := NewInMemoryStore()

	got, err := store.Get(context.Background(), HashToken("unknown"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown token, got %+v", got)
	}
}

func TestInMemoryStoreGetHidesExpiredSession(t *testing.T) {
	store := NewInMemoryStore()
	sess := New("tok123", "", nil)
	sess.ExpiresAt = time.Now().Add(-time.Minute)

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Get(context.Background(), sess.TokenHash)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected expired session to be hidden")
	}
}

func TestInMemoryStoreDelete(t *testing.T) {
	store := NewInMemoryStore()
	sess := New("tok123", "", nil)

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(context.Background(), sess.TokenHash); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, _ := store.Get(context.Background(), sess.TokenHash)
	if got != nil {
		t.Fatal("expected session removed")
	}
}

func TestInMemoryStoreDeleteExpired(t *testing.T) {
	store := NewInMemoryStore()

	live := New("live", "", nil)
	expired := New("expired", "", nil)
	expired.ExpiresAt = time.Now().Add(-time.Hour)

	_ = store.Save(context.Background(), live)
	_ = store.Save(context.Background(), expired)

	removed, err := store.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}

	if got, _ := store.Get(context.Background(), live.TokenHash); got == nil {
		t.Fatal("expected live session to survive cleanup")
	}
}

func TestHashTokenIsStableAndOpaque(t *testing.T) {
	if HashToken("tok123") != HashToken("tok123") {
		t.Fatal("expected stable hash")
	}
	if HashToken("tok123") == "tok123" {
		t.Fatal("expected hash to differ from token")
	}
}
