package localstore

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/hkguide/server/domain/entities"
)

func openTestStore(t *testing.T) *UserStore {
	t.Helper()
	store, err := Open(Options{InMemory: true}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUserStore_SaveLoadClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user, err := store.Load(ctx)
	if err != nil || user != nil {
		t.Fatalf("Expected no user, got %+v (%v)", user, err)
	}

	if err := store.Save(ctx, &entities.User{ID: "u1", FirstName: "Amy", Email: "amy@example.com", Password: "secret"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	user, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if user.ID != "u1" || user.Email != "amy@example.com" {
		t.Errorf("Unexpected user %+v", user)
	}
	if user.Password != "" {
		t.Error("Expected password not to be persisted")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if user, _ := store.Load(ctx); user != nil {
		t.Errorf("Expected no user after Clear, got %+v", user)
	}

	// Clearing twice is harmless.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Expected second Clear to succeed, got %v", err)
	}
}

func TestOpen_RequiresDir(t *testing.T) {
	if _, err := Open(Options{}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without Dir")
	}
}

func TestUserStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Options{Dir: dir}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = store.Save(ctx, &entities.User{ID: "u2"})
	_ = store.Close()

	store, err = Open(Options{Dir: dir}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()

	user, err := store.Load(ctx)
	if err != nil || user == nil || user.ID != "u2" {
		t.Errorf("Expected persisted user, got %+v (%v)", user, err)
	}
}

func TestUserStore_Token(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	token, err := store.LoadToken(ctx)
	if err != nil || token != "" {
		t.Fatalf("Expected no token, got %q (%v)", token, err)
	}

	if err := store.SaveToken(ctx, "jwt-abc", time.Now().Add(-time.Minute)); err == nil {
		t.Error("Expected error for an expired token")
	}

	if err := store.SaveToken(ctx, "jwt-abc", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	token, err = store.LoadToken(ctx)
	if err != nil || token != "jwt-abc" {
		t.Errorf("Expected stored token, got %q (%v)", token, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if token, _ := store.LoadToken(ctx); token != "" {
		t.Errorf("Expected token removed by Clear, got %q", token)
	}
}
