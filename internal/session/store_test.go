package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testBackends(t *testing.T) map[string]KV {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   NewFileKV(filepath.Join(t.TempDir(), "state", "session.json")),
		"redis":  NewRedisKV(rdb, "test:session"),
	}
}

func TestStoreTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, kv := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(kv)

			if _, ok, err := store.Token(ctx); err != nil || ok {
				t.Fatalf("fresh store token: ok=%v err=%v", ok, err)
			}

			if err := store.SetToken(ctx, "abc.def.ghi"); err != nil {
				t.Fatalf("set token: %v", err)
			}
			tok, ok, err := store.Token(ctx)
			if err != nil || !ok || tok != "abc.def.ghi" {
				t.Fatalf("get token: %q ok=%v err=%v", tok, ok, err)
			}

			if err := store.ClearToken(ctx); err != nil {
				t.Fatalf("clear token: %v", err)
			}
			if _, ok, _ := store.Token(ctx); ok {
				t.Fatal("token survived clear")
			}
		})
	}
}

func TestStoreSessionIDWritesBothSlots(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV())

	if err := store.SetSessionID(ctx, "sess-42"); err != nil {
		t.Fatalf("set session id: %v", err)
	}
	if id, ok, _ := store.SessionID(ctx); !ok || id != "sess-42" {
		t.Fatalf("sid slot: %q ok=%v", id, ok)
	}
	if id, ok, _ := store.OnboardingSessionID(ctx); !ok || id != "sess-42" {
		t.Fatalf("onboarding slot: %q ok=%v", id, ok)
	}

	if err := store.ClearSessionID(ctx); err != nil {
		t.Fatalf("clear session id: %v", err)
	}
	if _, ok, _ := store.SessionID(ctx); ok {
		t.Fatal("sid survived clear")
	}
	if _, ok, _ := store.OnboardingSessionID(ctx); ok {
		t.Fatal("onboarding id survived clear")
	}
}

func TestHandoffTakeConsumes(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV())

	type draft struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}

	if err := store.SaveHandoff(ctx, HandoffPendingTransfer, draft{To: "ana@example.com", Amount: "25.00"}); err != nil {
		t.Fatalf("save handoff: %v", err)
	}

	var peeked draft
	ok, err := store.PeekHandoff(ctx, HandoffPendingTransfer, &peeked)
	if err != nil || !ok {
		t.Fatalf("peek handoff: ok=%v err=%v", ok, err)
	}
	if peeked.To != "ana@example.com" {
		t.Fatalf("peek payload: %+v", peeked)
	}

	var taken draft
	ok, err = store.TakeHandoff(ctx, HandoffPendingTransfer, &taken)
	if err != nil || !ok {
		t.Fatalf("take handoff: ok=%v err=%v", ok, err)
	}
	if taken.Amount != "25.00" {
		t.Fatalf("take payload: %+v", taken)
	}

	var again draft
	ok, err = store.TakeHandoff(ctx, HandoffPendingTransfer, &again)
	if err != nil {
		t.Fatalf("second take errored: %v", err)
	}
	if ok {
		t.Fatal("handoff slot not consumed by take")
	}
}

func TestFileKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first := NewStore(NewFileKV(path))
	if err := first.SetToken(ctx, "persisted"); err != nil {
		t.Fatalf("set token: %v", err)
	}

	second := NewStore(NewFileKV(path))
	tok, ok, err := second.Token(ctx)
	if err != nil || !ok || tok != "persisted" {
		t.Fatalf("reopened token: %q ok=%v err=%v", tok, ok, err)
	}
}
