package service

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/messages"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
	"github.com/spec-kit/relay-desk/internal/repository/sqlitestore"
	"github.com/spec-kit/relay-desk/internal/transport/transporttest"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

const (
	directorID int64 = 1000
	guestID    int64 = 2
)

type harness struct {
	ctx        context.Context
	set        repository.Set
	tracker    *conversation.Tracker
	transport  *transporttest.Recorder
	relay      *RelayService
	redemption *RedemptionService
	console    *ConsoleService
	account    *AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := persistence.OpenSQLite(config.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "relay.db"),
		PoolSize: 4,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)

	set := sqlitestore.NewSet(db)
	tracker := conversation.NewTracker(conversation.NewMemoryStore(), 0, nil)
	recorder := transporttest.NewRecorder()
	dispatcher := events.NewInMemoryDispatcher(nil)
	catalog := messages.Default()

	NewNotificationService(NotificationDependencies{
		Dispatcher:  dispatcher,
		Transport:   recorder,
		UserRepo:    set.Users,
		Catalog:     catalog,
		OperatorIDs: []int64{directorID},
	}).RegisterHandlers()

	relay := NewRelayService(RelayDependencies{
		UserRepo:   set.Users,
		TicketRepo: set.Tickets,
		Tracker:    tracker,
		Transport:  recorder,
		Catalog:    catalog,
		Dispatcher: dispatcher,
	})
	h := &harness{
		ctx:       context.Background(),
		set:       set,
		tracker:   tracker,
		transport: recorder,
		relay:     relay,
		redemption: NewRedemptionService(RedemptionDependencies{
			UserRepo:   set.Users,
			RewardRepo: set.Rewards,
			Tracker:    tracker,
			Dispatcher: dispatcher,
		}),
		console: NewConsoleService(ConsoleDependencies{
			UserRepo:   set.Users,
			RewardRepo: set.Rewards,
			EventRepo:  set.Events,
			Relay:      relay,
			Tracker:    tracker,
			Dispatcher: dispatcher,
		}),
		account: NewAccountService(AccountDependencies{
			UserRepo:    set.Users,
			OperatorIDs: []int64{directorID},
		}),
	}

	if _, err := h.account.Start(h.ctx, directorID, domain.Profile{Handle: "boss"}); err != nil {
		t.Fatalf("start director: %v", err)
	}
	if _, err := h.account.Start(h.ctx, guestID, domain.Profile{Handle: "guest"}); err != nil {
		t.Fatalf("start guest: %v", err)
	}
	return h
}

func (h *harness) state(t *testing.T, userID int64) conversation.State {
	t.Helper()
	state, err := h.tracker.GetState(h.ctx, userID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	return state
}

func (h *harness) user(t *testing.T, userID int64) *domain.User {
	t.Helper()
	user, err := h.set.Users.GetByID(h.ctx, userID)
	if err != nil {
		t.Fatalf("get user %d: %v", userID, err)
	}
	return user
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func text(s string) domain.Content {
	return domain.Content{Text: s}
}
