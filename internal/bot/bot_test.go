package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/messages"
	"github.com/spec-kit/relay-desk/internal/observability"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
	"github.com/spec-kit/relay-desk/internal/repository/sqlitestore"
	"github.com/spec-kit/relay-desk/internal/service"
	"github.com/spec-kit/relay-desk/internal/transport"
	"github.com/spec-kit/relay-desk/internal/transport/transporttest"
)

const (
	operatorID int64 = 500
	userID     int64 = 77
)

type fixture struct {
	ctx       context.Context
	bot       *Bot
	set       repository.Set
	tracker   *conversation.Tracker
	transport *transporttest.Recorder
	catalog   *messages.Catalog
	metrics   *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := persistence.OpenSQLite(config.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "bot.db"),
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
	metrics := observability.NewMetrics()

	service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Transport:   recorder,
		Catalog:     catalog,
		OperatorIDs: []int64{operatorID},
	}).RegisterHandlers()

	relay := service.NewRelayService(service.RelayDependencies{
		UserRepo:   set.Users,
		TicketRepo: set.Tickets,
		Tracker:    tracker,
		Transport:  recorder,
		Catalog:    catalog,
		Dispatcher: dispatcher,
	})
	b := New(Dependencies{
		Account: service.NewAccountService(service.AccountDependencies{
			UserRepo:    set.Users,
			OperatorIDs: []int64{operatorID},
		}),
		Relay: relay,
		Redemption: service.NewRedemptionService(service.RedemptionDependencies{
			UserRepo:   set.Users,
			RewardRepo: set.Rewards,
			Tracker:    tracker,
			Dispatcher: dispatcher,
		}),
		Console: service.NewConsoleService(service.ConsoleDependencies{
			UserRepo:   set.Users,
			RewardRepo: set.Rewards,
			EventRepo:  set.Events,
			Relay:      relay,
			Tracker:    tracker,
			Dispatcher: dispatcher,
		}),
		Tracker:   tracker,
		Transport: recorder,
		Catalog:   catalog,
		Metrics:   metrics,
	})

	f := &fixture{
		ctx:       context.Background(),
		bot:       b,
		set:       set,
		tracker:   tracker,
		transport: recorder,
		catalog:   catalog,
		metrics:   metrics,
	}
	f.send(operatorID, "/start")
	f.send(userID, "/start")
	recorder.Reset()
	return f
}

func (f *fixture) send(senderID int64, text string) {
	f.bot.HandleUpdate(f.ctx, transport.Update{
		SenderID: senderID,
		Profile:  domain.Profile{Handle: fmt.Sprintf("u%d", senderID)},
		Text:     text,
	})
}

func (f *fixture) press(senderID int64, data string) {
	f.bot.HandleUpdate(f.ctx, transport.Update{
		SenderID:   senderID,
		Profile:    domain.Profile{Handle: fmt.Sprintf("u%d", senderID)},
		Callback:   data,
		CallbackID: "cb-" + data,
	})
}

func (f *fixture) last(t *testing.T, recipientID int64) transport.Message {
	t.Helper()
	sent := f.transport.To(recipientID)
	if len(sent) == 0 {
		t.Fatalf("nothing sent to %d", recipientID)
	}
	return sent[len(sent)-1].Message
}

func (f *fixture) expectLast(t *testing.T, recipientID int64, want string) {
	t.Helper()
	if got := f.last(t, recipientID).Text; got != want {
		t.Fatalf("to %d: got %q want %q", recipientID, got, want)
	}
}

func (f *fixture) openTickets(t *testing.T) []domain.Ticket {
	t.Helper()
	answered := false
	tickets, err := f.set.Tickets.List(f.ctx, repository.TicketFilter{Answered: &answered, Limit: 100})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	return tickets
}

func TestStartShowsOperatorMenu(t *testing.T) {
	f := newFixture(t)

	f.send(operatorID, "/start")
	menu := f.last(t, operatorID)
	if menu.Text != f.catalog.Get(messages.Welcome) {
		t.Fatalf("unexpected welcome: %q", menu.Text)
	}
	if !hasButton(menu.Keyboard, "tickets:1") {
		t.Fatalf("operator menu lacks tickets button: %+v", menu.Keyboard)
	}

	f.send(userID, "/start")
	if hasButton(f.last(t, userID).Keyboard, "tickets:1") {
		t.Fatalf("guest menu must not offer console buttons")
	}
}

func TestContactFlowIsSingleUse(t *testing.T) {
	f := newFixture(t)

	f.press(userID, "contact")
	f.expectLast(t, userID, f.catalog.Get(messages.ContactPrompt))

	f.send(userID, "my order never arrived")
	f.expectLast(t, userID, f.catalog.Get(messages.ContactSent))
	if !strings.Contains(f.last(t, operatorID).Text, "my order never arrived") {
		t.Fatalf("operator was not notified: %q", f.last(t, operatorID).Text)
	}

	f.send(userID, "hello again")
	f.expectLast(t, userID, f.catalog.Get(messages.UnknownCommand))
	if n := len(f.openTickets(t)); n != 1 {
		t.Fatalf("expected exactly one ticket, got %d", n)
	}
	if got := f.metrics.FlowCount("contact", "ok"); got != 2 {
		t.Fatalf("expected two successful contact steps, got %d", got)
	}
}

func TestOperatorCannotOpenTicket(t *testing.T) {
	f := newFixture(t)

	f.send(operatorID, "/contact")
	f.expectLast(t, operatorID, f.catalog.Get(messages.ContactOperatorDenied))
}

func TestOperatorReplyReachesSender(t *testing.T) {
	f := newFixture(t)
	f.send(userID, "/contact")
	f.send(userID, "where is my prize")
	ticket := f.openTickets(t)[0]

	f.press(operatorID, transport.CallbackData("ticket", ticket.ID))
	if !strings.Contains(f.last(t, operatorID).Text, "where is my prize") {
		t.Fatalf("ticket detail missing message: %q", f.last(t, operatorID).Text)
	}

	f.send(operatorID, "it ships tomorrow")
	f.expectLast(t, operatorID, f.catalog.Format(messages.ReplySent, "id", ticket.ID))
	reply := f.last(t, userID).Text
	if !strings.Contains(reply, "where is my prize") || !strings.Contains(reply, "it ships tomorrow") {
		t.Fatalf("reply lacks original or answer: %q", reply)
	}
	if len(f.openTickets(t)) != 0 {
		t.Fatalf("ticket should be answered")
	}

	f.send(operatorID, "one more thing")
	f.expectLast(t, operatorID, f.catalog.Get(messages.UnknownCommand))
}

func TestFailedReplyKeepsTicketOpen(t *testing.T) {
	f := newFixture(t)
	f.send(userID, "/contact")
	f.send(userID, "help")
	ticket := f.openTickets(t)[0]

	f.send(operatorID, fmt.Sprintf("/ticket %d", ticket.ID))
	f.transport.FailFor(userID, true)
	f.send(operatorID, "answer")
	f.expectLast(t, operatorID, f.catalog.Get(messages.ReplyFailed))
	if len(f.openTickets(t)) != 1 {
		t.Fatalf("ticket should remain open after a failed delivery")
	}
}

func TestRedeemFlow(t *testing.T) {
	f := newFixture(t)

	f.send(operatorID, "/code spring | 50")
	f.expectLast(t, operatorID, f.catalog.Format(messages.CodeCreated, "code", "SPRING", "reward", 50))
	f.send(operatorID, "/code SPRING | 10")
	f.expectLast(t, operatorID, f.catalog.Format(messages.CodeExists, "code", "SPRING"))

	f.press(userID, "redeem")
	f.expectLast(t, userID, f.catalog.Get(messages.RedeemPrompt))
	f.send(userID, " spring ")
	f.expectLast(t, userID, f.catalog.Format(messages.RedeemSuccess, "code", "SPRING", "reward", 50, "balance", 50))

	f.send(userID, "/redeem")
	f.send(userID, "SPRING")
	f.expectLast(t, userID, f.catalog.Get(messages.AlreadyRedeemed))

	f.send(userID, "/redeem")
	f.send(userID, "NOPE")
	f.expectLast(t, userID, f.catalog.Get(messages.InvalidCode))

	user, err := f.set.Users.GetByID(f.ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Balance != 50 {
		t.Fatalf("expected balance 50, got %d", user.Balance)
	}
}

func TestCancelAbandonsFlow(t *testing.T) {
	f := newFixture(t)

	f.send(userID, "/cancel")
	f.expectLast(t, userID, f.catalog.Get(messages.NothingToCancel))

	f.send(userID, "/contact")
	f.send(userID, "/cancel")
	f.expectLast(t, userID, f.catalog.Get(messages.Cancelled))
	f.send(userID, "this is not a ticket")
	f.expectLast(t, userID, f.catalog.Get(messages.UnknownCommand))
	if len(f.openTickets(t)) != 0 {
		t.Fatalf("cancelled flow must not create a ticket")
	}
}

func TestCommandAbandonsPendingFlow(t *testing.T) {
	f := newFixture(t)

	f.send(userID, "/redeem")
	f.send(userID, "/account")
	if !strings.Contains(f.last(t, userID).Text, fmt.Sprint(userID)) {
		t.Fatalf("account view missing id: %q", f.last(t, userID).Text)
	}
	state, err := f.tracker.GetState(f.ctx, userID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if !state.IsIdle() {
		t.Fatalf("expected idle state, got %s", state.Mode)
	}
}

func TestConsoleDeniedForGuest(t *testing.T) {
	f := newFixture(t)

	for _, text := range []string{"/tickets", "/users", "/ticket 1", "/code X | 5", "/rank 77 Director", "/balance 77 +5", "/block 500", "/newevent"} {
		f.send(userID, text)
		f.expectLast(t, userID, f.catalog.Get(messages.AccessDenied))
	}
	user, err := f.set.Users.GetByID(f.ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Rank != domain.RankGuest || user.Balance != 0 {
		t.Fatalf("guest mutated: %+v", user)
	}
}

func TestTicketListPaginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < service.PageSize+1; i++ {
		sender := int64(1000 + i)
		f.send(sender, "/contact")
		f.send(sender, fmt.Sprintf("issue %d", i))
	}

	f.send(operatorID, "/tickets")
	first := f.last(t, operatorID)
	if !hasButton(first.Keyboard, "tickets:2") {
		t.Fatalf("first page should link to page 2: %+v", first.Keyboard)
	}

	f.press(operatorID, "tickets:2")
	second := f.last(t, operatorID)
	if hasButton(second.Keyboard, "tickets:3") || !hasButton(second.Keyboard, "tickets:1") {
		t.Fatalf("unexpected navigation on last page: %+v", second.Keyboard)
	}
	if lines := strings.Count(second.Text, "\n"); lines != 1 {
		t.Fatalf("expected one ticket on page 2, got %d", lines)
	}

	f.send(operatorID, "/tickets 3")
	f.expectLast(t, operatorID, f.catalog.Get(messages.TicketsEmpty))
}

func TestEventCreationAndListing(t *testing.T) {
	f := newFixture(t)

	f.send(operatorID, "/newevent")
	f.expectLast(t, operatorID, f.catalog.Get(messages.EventPrompt))
	f.send(operatorID, "only a title")
	f.expectLast(t, operatorID, f.catalog.Get(messages.EventUsage))

	f.send(operatorID, "/newevent")
	f.bot.HandleUpdate(f.ctx, transport.Update{
		SenderID: operatorID,
		Media: &domain.MediaRef{
			Kind:    domain.MediaPhoto,
			FileID:  "poster",
			Caption: "Quiz night | Trivia for all | 100 coins | Friday",
		},
	})
	f.expectLast(t, operatorID, f.catalog.Format(messages.EventCreated, "title", "Quiz night"))

	f.send(userID, "/events")
	sent := f.transport.To(userID)
	var echoed bool
	for _, s := range sent {
		if s.Media != nil && s.Media.FileID == "poster" && strings.Contains(s.Message.Text, "Quiz night") {
			echoed = true
		}
	}
	if !echoed {
		t.Fatalf("event poster was not echoed: %+v", sent)
	}
}

func TestEventPagesShowHeaderOnce(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < service.PageSize; i++ {
		f.send(operatorID, "/newevent")
		f.send(operatorID, fmt.Sprintf("Event %d | details | prize | soon", i))
	}

	f.transport.Reset()
	f.send(userID, "/events")
	header := f.catalog.Format(messages.EventsHeader, "page", 1)
	headers := 0
	for _, s := range f.transport.To(userID) {
		if s.Message.Text == header {
			headers++
		}
	}
	if headers != 1 {
		t.Fatalf("expected one events header, got %d", headers)
	}
	nav := f.last(t, userID)
	if nav.Text != f.catalog.Get(messages.EventsPager) || !hasButton(nav.Keyboard, "events:2") {
		t.Fatalf("unexpected pager message: %+v", nav)
	}
}

func TestUnknownAndMalformedCommands(t *testing.T) {
	f := newFixture(t)

	f.send(userID, "/launch")
	f.expectLast(t, userID, f.catalog.Get(messages.UnknownCommand))
	f.send(operatorID, "/rank 77")
	f.expectLast(t, operatorID, f.catalog.Get(messages.RankUsage))
	f.send(operatorID, "/balance 9999 +5")
	f.expectLast(t, operatorID, f.catalog.Get(messages.UserNotFound))
}

func hasButton(keyboard transport.Keyboard, data string) bool {
	for _, row := range keyboard {
		for _, button := range row {
			if button.Data == data {
				return true
			}
		}
	}
	return false
}
