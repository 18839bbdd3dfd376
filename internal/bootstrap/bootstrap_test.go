package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/conversation"
)

func TestOpenSQLiteStoreAndMemoryTracker(t *testing.T) {
	cfg := &config.Config{
		Store:        config.StoreConfig{Driver: config.StoreDriverSQLite},
		SQLite:       config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "boot.db"), PoolSize: 1},
		Conversation: config.ConversationConfig{Backend: config.StateBackendMemory},
	}
	ctx := context.Background()

	store, err := OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.Health.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if store.Users == nil || store.Rewards == nil {
		t.Fatalf("repositories not wired")
	}

	tracker := OpenTracker(ctx, cfg, zap.NewNop())
	defer tracker.Close()
	if tracker.Redis != nil {
		t.Fatalf("memory backend must not open redis")
	}
	if err := tracker.SetState(ctx, 1, conversation.State{Mode: conversation.ModeAwaitingTicketText}); err != nil {
		t.Fatalf("set state: %v", err)
	}

	checks := ReadinessChecks(store, tracker)
	if _, ok := checks["sqlite"]; !ok || len(checks) != 1 {
		t.Fatalf("unexpected checks: %v", checks)
	}
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "mongo"}}
	if _, err := OpenStore(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error")
	}
}
