package sqlitestore

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
)

func openTestSet(t *testing.T) repository.Set {
	t.Helper()
	db, err := persistence.OpenSQLite(config.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "relay.db"),
		PoolSize: 4,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	return NewSet(db)
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	first, err := set.Users.Ensure(ctx, &domain.User{ID: 10, DisplayName: "Ana", Handle: "ana"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Rank != domain.RankGuest || first.Balance != 0 {
		t.Fatalf("unexpected defaults: %+v", first)
	}

	if err := set.Users.UpdateRank(ctx, 10, domain.RankCurator); err != nil {
		t.Fatalf("update rank: %v", err)
	}
	again, err := set.Users.Ensure(ctx, &domain.User{ID: 10, DisplayName: "Other"})
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.Rank != domain.RankCurator || again.DisplayName != "Ana" {
		t.Fatalf("ensure must not overwrite: %+v", again)
	}
}

func TestUserMissingRowsReportNotFound(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	if _, err := set.Users.GetByID(ctx, 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := set.Users.SetBlocked(ctx, 99, true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := set.Users.AdjustBalance(ctx, 99, 5, false); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdjustBalanceClampsAtZero(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)
	if _, err := set.Users.Ensure(ctx, &domain.User{ID: 1}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	balance, err := set.Users.AdjustBalance(ctx, 1, 30, true)
	if err != nil || balance != 30 {
		t.Fatalf("credit: balance=%d err=%v", balance, err)
	}
	balance, err = set.Users.AdjustBalance(ctx, 1, -100, true)
	if err != nil || balance != 0 {
		t.Fatalf("clamped debit: balance=%d err=%v", balance, err)
	}
}

func TestAdjustBalanceRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)
	if _, err := set.Users.Ensure(ctx, &domain.User{ID: 1}); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if _, err := set.Users.AdjustBalance(ctx, 1, 10, false); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := set.Users.AdjustBalance(ctx, 1, math.MaxInt64, false); !errors.Is(err, repository.ErrBalanceOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	balance, err := set.Users.AdjustBalance(ctx, 1, -5, false)
	if err != nil || balance != 5 {
		t.Fatalf("debit after rejected overflow: balance=%d err=%v", balance, err)
	}

	balance, err = set.Users.AdjustBalance(ctx, 1, math.MaxInt64-5, false)
	if err != nil || balance != math.MaxInt64 {
		t.Fatalf("credit to the limit: balance=%d err=%v", balance, err)
	}

	if err := set.Rewards.CreateCode(ctx, &domain.RewardCode{Code: "TOP", Reward: 1}); err != nil {
		t.Fatalf("create code: %v", err)
	}
	if _, err := set.Rewards.Redeem(ctx, 1, "TOP", 1); !errors.Is(err, repository.ErrBalanceOverflow) {
		t.Fatalf("expected overflow on redeem, got %v", err)
	}
	redeemed, err := set.Rewards.HasRedeemed(ctx, 1, "TOP")
	if err != nil || redeemed {
		t.Fatalf("overflowing redemption must roll back: redeemed=%v err=%v", redeemed, err)
	}
}

func TestTicketListAndTransition(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		ticket := &domain.Ticket{UserID: 7, Handle: "bob", Message: "help"}
		if err := set.Tickets.Create(ctx, ticket); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, ticket.ID)
	}

	open := false
	tickets, err := set.Tickets.List(ctx, repository.TicketFilter{Answered: &open, Limit: 9})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 3 || tickets[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %+v", tickets)
	}

	changed, err := set.Tickets.TransitionAnswered(ctx, ids[0], false, true)
	if err != nil || !changed {
		t.Fatalf("first claim: changed=%v err=%v", changed, err)
	}
	changed, err = set.Tickets.TransitionAnswered(ctx, ids[0], false, true)
	if err != nil || changed {
		t.Fatalf("second claim must not change: changed=%v err=%v", changed, err)
	}

	tickets, err = set.Tickets.List(ctx, repository.TicketFilter{Answered: &open, Limit: 9})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("answered ticket still listed: %+v", tickets)
	}
}

func TestCreateCodeRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	if err := set.Rewards.CreateCode(ctx, &domain.RewardCode{Code: "SPRING", Reward: 50}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := set.Rewards.CreateCode(ctx, &domain.RewardCode{Code: "SPRING", Reward: 10})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	code, err := set.Rewards.GetCode(ctx, "SPRING")
	if err != nil || code.Reward != 50 {
		t.Fatalf("original code overwritten: %+v err=%v", code, err)
	}
}

func TestRedeemConcurrentlyCreditsOnce(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	if _, err := set.Users.Ensure(ctx, &domain.User{ID: 5}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := set.Rewards.CreateCode(ctx, &domain.RewardCode{Code: "ONCE", Reward: 25}); err != nil {
		t.Fatalf("create code: %v", err)
	}

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		repeats   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := set.Rewards.Redeem(ctx, 5, "ONCE", 25)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, repository.ErrAlreadyRedeemed):
				repeats++
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || repeats != attempts-1 {
		t.Fatalf("successes=%d repeats=%d", successes, repeats)
	}
	user, err := set.Users.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Balance != 25 {
		t.Fatalf("expected balance 25, got %d", user.Balance)
	}
	redeemed, err := set.Rewards.HasRedeemed(ctx, 5, "ONCE")
	if err != nil || !redeemed {
		t.Fatalf("redemption not recorded: %v %v", redeemed, err)
	}
}

func TestEventsRoundTripMedia(t *testing.T) {
	ctx := context.Background()
	set := openTestSet(t)

	plain := &domain.Event{Title: "Quiz", Prize: "100", CreatorID: 1}
	withMedia := &domain.Event{Title: "Photo contest", CreatorID: 1,
		Media: &domain.MediaRef{Kind: domain.MediaPhoto, FileID: "file-1"}}
	for _, event := range []*domain.Event{plain, withMedia} {
		if err := set.Events.Create(ctx, event); err != nil {
			t.Fatalf("create event: %v", err)
		}
	}

	events, err := set.Events.List(ctx, 9, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Media == nil || events[0].Media.FileID != "file-1" {
		t.Fatalf("media lost: %+v", events[0])
	}
	if events[1].Media != nil {
		t.Fatalf("plain event gained media: %+v", events[1])
	}
}
