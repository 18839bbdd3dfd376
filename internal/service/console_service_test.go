package service

import (
	"context"
	"math"
	"testing"

	"github.com/spec-kit/relay-desk/internal/domain"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

func TestGuestIsDeniedEveryGatedOperation(t *testing.T) {
	h := newHarness(t)
	ticket, err := h.relay.SubmitTicket(h.ctx, 55, domain.Profile{}, text("open"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := h.console.CreateCode(h.ctx, directorID, "EXISTING", 5); err != nil {
		t.Fatalf("create code: %v", err)
	}
	h.transport.Reset()

	gated := map[string]func(ctx context.Context, actor int64) error{
		"list tickets": func(ctx context.Context, actor int64) error {
			_, err := h.console.ListTickets(ctx, actor, 1)
			return err
		},
		"get ticket": func(ctx context.Context, actor int64) error {
			_, err := h.console.GetTicket(ctx, actor, ticket.ID)
			return err
		},
		"select ticket": func(ctx context.Context, actor int64) error {
			_, err := h.console.SelectTicket(ctx, actor, ticket.ID)
			return err
		},
		"submit reply": func(ctx context.Context, actor int64) error {
			_, err := h.console.SubmitReply(ctx, actor, text("hi"))
			return err
		},
		"reply to ticket": func(ctx context.Context, actor int64) error {
			_, err := h.console.ReplyToTicket(ctx, actor, ticket.ID, text("hi"))
			return err
		},
		"create code spec": func(ctx context.Context, actor int64) error {
			_, err := h.console.CreateCodeFromSpec(ctx, actor, "FREE | 100")
			return err
		},
		"create code": func(ctx context.Context, actor int64) error {
			_, err := h.console.CreateCode(ctx, actor, "FREE2", 100)
			return err
		},
		"list users": func(ctx context.Context, actor int64) error {
			_, err := h.console.ListUsers(ctx, actor, 1)
			return err
		},
		"set rank": func(ctx context.Context, actor int64) error {
			_, err := h.console.SetRank(ctx, actor, actor, domain.RankDirector)
			return err
		},
		"adjust balance": func(ctx context.Context, actor int64) error {
			_, err := h.console.AdjustBalance(ctx, actor, actor, 1000)
			return err
		},
		"toggle block": func(ctx context.Context, actor int64) error {
			_, err := h.console.ToggleBlock(ctx, actor, directorID)
			return err
		},
		"set blocked": func(ctx context.Context, actor int64) error {
			_, err := h.console.SetBlocked(ctx, actor, directorID, true)
			return err
		},
		"begin event": func(ctx context.Context, actor int64) error {
			return h.console.BeginEvent(ctx, actor)
		},
		"create event": func(ctx context.Context, actor int64) error {
			_, err := h.console.CreateEvent(ctx, actor, text("Party | fun | 10 | friday"))
			return err
		},
	}

	for name, op := range gated {
		t.Run(name, func(t *testing.T) {
			for _, actor := range []int64{guestID, 12345} {
				err := op(h.ctx, actor)
				expectCode(t, err, apperrors.CodeForbidden)
				if domainErr := apperrors.ToDomainError(err); domainErr.Message != "access denied" || len(domainErr.Details) != 0 {
					t.Fatalf("denial leaks detail: %+v", domainErr)
				}
			}
		})
	}

	guest := h.user(t, guestID)
	if guest.Rank != domain.RankGuest || guest.Balance != 0 || guest.Blocked {
		t.Fatalf("guest mutated: %+v", guest)
	}
	if director := h.user(t, directorID); director.Blocked {
		t.Fatalf("director blocked by guest")
	}
	for _, code := range []string{"FREE", "FREE2"} {
		if _, err := h.set.Rewards.GetCode(h.ctx, code); err == nil {
			t.Fatalf("code %s created by guest", code)
		}
	}
	stored, err := h.set.Tickets.GetByID(h.ctx, ticket.ID)
	if err != nil || stored.Answered {
		t.Fatalf("ticket mutated by guest: %+v %v", stored, err)
	}
	if events, err := h.console.ListEvents(h.ctx, 1); err != nil || !events.IsEmpty() {
		t.Fatalf("event created by guest: %+v %v", events, err)
	}
	if !h.state(t, guestID).IsIdle() {
		t.Fatalf("guest entered a console flow")
	}
	if sent := h.transport.All(); len(sent) != 0 {
		t.Fatalf("guest triggered deliveries: %+v", sent)
	}
}

func TestCreateCodeValidation(t *testing.T) {
	h := newHarness(t)
	for _, spec := range []string{"NOPIPE 10", "X | abc", "X | 0", "X | -5", " | 10", "A B | 3"} {
		_, err := h.console.CreateCodeFromSpec(h.ctx, directorID, spec)
		expectCode(t, err, apperrors.CodeValidation)
	}

	if _, err := h.console.CreateCodeFromSpec(h.ctx, directorID, "dup | 10"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := h.console.CreateCodeFromSpec(h.ctx, directorID, "DUP | 20")
	expectCode(t, err, apperrors.CodeConflict)
}

func TestUserManagement(t *testing.T) {
	h := newHarness(t)

	user, err := h.console.SetRank(h.ctx, directorID, guestID, domain.RankCurator)
	if err != nil || user.Rank != domain.RankCurator {
		t.Fatalf("set rank: %+v %v", user, err)
	}
	_, err = h.console.SetRank(h.ctx, directorID, guestID, domain.Rank("Emperor"))
	expectCode(t, err, apperrors.CodeValidation)

	user, err = h.console.AdjustBalance(h.ctx, directorID, guestID, 25)
	if err != nil || user.Balance != 25 {
		t.Fatalf("credit: %+v %v", user, err)
	}
	user, err = h.console.AdjustBalance(h.ctx, directorID, guestID, -100)
	if err != nil || user.Balance != 0 {
		t.Fatalf("debit must clamp at zero: %+v %v", user, err)
	}

	user, err = h.console.ToggleBlock(h.ctx, directorID, guestID)
	if err != nil || !user.Blocked {
		t.Fatalf("toggle on: %+v %v", user, err)
	}
	user, err = h.console.ToggleBlock(h.ctx, directorID, guestID)
	if err != nil || user.Blocked {
		t.Fatalf("toggle off: %+v %v", user, err)
	}

	_, err = h.console.SetRank(h.ctx, directorID, 99999, domain.RankMember)
	expectCode(t, err, apperrors.CodeNotFound)

	page, err := h.console.ListUsers(h.ctx, directorID, 1)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(page.Items) != 2 || page.HasNext {
		t.Fatalf("unexpected users page: %+v", page)
	}
}

func TestBalanceOverflowIsRejected(t *testing.T) {
	h := newHarness(t)

	if _, err := h.console.AdjustBalance(h.ctx, directorID, guestID, 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	_, err := h.console.AdjustBalance(h.ctx, directorID, guestID, math.MaxInt64)
	expectCode(t, err, apperrors.CodeValidation)

	user, err := h.console.AdjustBalance(h.ctx, directorID, guestID, -5)
	if err != nil || user.Balance != 5 {
		t.Fatalf("debit after rejected overflow: %+v %v", user, err)
	}

	if _, err := h.console.AdjustBalance(h.ctx, directorID, guestID, math.MaxInt64-5); err != nil {
		t.Fatalf("credit to the limit: %v", err)
	}
	if _, err := h.console.CreateCode(h.ctx, directorID, "EDGE", 1); err != nil {
		t.Fatalf("create code: %v", err)
	}
	_, err = h.redemption.Redeem(h.ctx, guestID, domain.Profile{}, "EDGE")
	expectCode(t, err, apperrors.CodeValidation)
	if balance := h.user(t, guestID).Balance; balance != math.MaxInt64 {
		t.Fatalf("rejected redemption changed balance to %d", balance)
	}
}

func TestCreateAndListEvents(t *testing.T) {
	h := newHarness(t)
	if err := h.console.BeginEvent(h.ctx, directorID); err != nil {
		t.Fatalf("begin event: %v", err)
	}

	content := domain.Content{Media: &domain.MediaRef{
		Kind:    domain.MediaPhoto,
		FileID:  "poster",
		Caption: "Quiz night | trivia | 100 coins | Friday 20:00",
	}}
	event, err := h.console.CreateEvent(h.ctx, directorID, content)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.Title != "Quiz night" || event.Schedule != "Friday 20:00" || event.Media == nil {
		t.Fatalf("unexpected event: %+v", event)
	}

	_, err = h.console.CreateEvent(h.ctx, directorID, text("missing parts"))
	expectCode(t, err, apperrors.CodeValidation)

	page, err := h.console.ListEvents(h.ctx, 1)
	if err != nil {
		t.Fatalf("public listing: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Media == nil || page.Items[0].Media.FileID != "poster" {
		t.Fatalf("unexpected events page: %+v", page.Items)
	}
}

func TestParseEventSpec(t *testing.T) {
	event, err := ParseEventSpec("  Hackathon |  build things | 500 | next week ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Title != "Hackathon" || event.Description != "build things" || event.Prize != "500" || event.Schedule != "next week" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if _, err := ParseEventSpec(" | a | b | c"); err == nil {
		t.Fatalf("empty title accepted")
	}
}
