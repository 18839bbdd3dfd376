package bot

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/messages"
	"github.com/spec-kit/relay-desk/internal/observability"
	"github.com/spec-kit/relay-desk/internal/service"
	"github.com/spec-kit/relay-desk/internal/transport"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

const previewRunes = 40

// Bot routes each update by the sender's conversation mode and command.
// Callers must not run two updates of one sender concurrently; see Serializer.
type Bot struct {
	account    *service.AccountService
	relay      *service.RelayService
	redemption *service.RedemptionService
	console    *service.ConsoleService
	tracker    *conversation.Tracker
	transport  transport.Transport
	catalog    *messages.Catalog
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// Dependencies bundles collaborators for the bot.
type Dependencies struct {
	Account    *service.AccountService
	Relay      *service.RelayService
	Redemption *service.RedemptionService
	Console    *service.ConsoleService
	Tracker    *conversation.Tracker
	Transport  transport.Transport
	Catalog    *messages.Catalog
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// New constructs the bot.
func New(deps Dependencies) *Bot {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = messages.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		account:    deps.Account,
		relay:      deps.Relay,
		redemption: deps.Redemption,
		console:    deps.Console,
		tracker:    deps.Tracker,
		transport:  deps.Transport,
		catalog:    catalog,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// HandleUpdate processes one update to completion. Every path sends exactly
// one acknowledgement to the sender, listings aside.
func (b *Bot) HandleUpdate(ctx context.Context, update transport.Update) {
	cmd := Parse(update)
	state, err := b.tracker.GetState(ctx, update.SenderID)
	if err != nil {
		b.logger.Error("load conversation state failed", zap.Int64("user_id", update.SenderID), zap.Error(err))
		b.finish(ctx, update, "state", apperrors.NewStoreError(err), nil)
		return
	}

	if cmd.Kind == KindInput {
		if state.IsIdle() {
			b.sendText(ctx, update.SenderID, b.catalog.Get(messages.UnknownCommand))
			return
		}
		b.consume(ctx, update, state, cmd)
		return
	}

	// any command abandons a pending flow
	if !state.IsIdle() {
		b.clearState(ctx, update.SenderID)
	}
	b.execute(ctx, update, state, cmd)
}

func (b *Bot) consume(ctx context.Context, update transport.Update, state conversation.State, cmd Command) {
	switch state.Mode {
	case conversation.ModeAwaitingTicketText:
		b.clearState(ctx, update.SenderID)
		_, err := b.relay.SubmitTicket(ctx, update.SenderID, update.Profile, cmd.Content)
		b.finish(ctx, update, "contact", err, func() string { return b.catalog.Get(messages.ContactSent) })

	case conversation.ModeAwaitingRedemptionCode:
		b.clearState(ctx, update.SenderID)
		result, err := b.redemption.Redeem(ctx, update.SenderID, update.Profile, cmd.Content.Text)
		b.finish(ctx, update, "redeem", err, func() string {
			return b.catalog.Format(messages.RedeemSuccess, "code", result.Code, "reward", result.Reward, "balance", result.Balance)
		})

	case conversation.ModeAwaitingOperatorReply:
		result, err := b.console.SubmitReply(ctx, update.SenderID, cmd.Content)
		b.finish(ctx, update, "reply", err, func() string {
			return b.catalog.Format(messages.ReplySent, "id", result.Ticket.ID)
		})

	case conversation.ModeAwaitingEventDetails:
		b.clearState(ctx, update.SenderID)
		event, err := b.console.CreateEvent(ctx, update.SenderID, cmd.Content)
		b.finish(ctx, update, "newevent", err, func() string {
			return b.catalog.Format(messages.EventCreated, "title", event.Title)
		})

	default:
		b.clearState(ctx, update.SenderID)
		b.sendText(ctx, update.SenderID, b.catalog.Get(messages.UnknownCommand))
	}
}

func (b *Bot) execute(ctx context.Context, update transport.Update, state conversation.State, cmd Command) {
	userID := update.SenderID
	flow := cmd.Kind.String()

	switch cmd.Kind {
	case KindStart:
		user, err := b.account.Start(ctx, userID, update.Profile)
		if err != nil {
			b.finish(ctx, update, flow, err, nil)
			return
		}
		b.record(flow, nil)
		b.send(ctx, userID, transport.Message{Text: b.catalog.Get(messages.Welcome), Keyboard: b.mainMenu(user)})

	case KindAccount:
		user, err := b.account.Account(ctx, userID)
		b.finish(ctx, update, flow, err, func() string {
			return b.catalog.Format(messages.Account,
				"id", user.ID,
				"name", orDash(user.DisplayName),
				"handle", orDash(user.Handle),
				"rank", user.Rank,
				"balance", user.Balance,
			)
		})

	case KindCancel:
		b.record(flow, nil)
		if state.IsIdle() {
			b.sendText(ctx, userID, b.catalog.Get(messages.NothingToCancel))
			return
		}
		b.sendText(ctx, userID, b.catalog.Get(messages.Cancelled))

	case KindContact:
		err := b.relay.OpenContact(ctx, userID, update.Profile)
		b.finish(ctx, update, flow, err, func() string { return b.catalog.Get(messages.ContactPrompt) })

	case KindRedeem:
		err := b.redemption.BeginRedemption(ctx, userID, update.Profile)
		b.finish(ctx, update, flow, err, func() string { return b.catalog.Get(messages.RedeemPrompt) })

	case KindTickets:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.UnknownCommand)
			return
		}
		page, err := b.console.ListTickets(ctx, userID, cmd.Page)
		if err != nil {
			b.finish(ctx, update, flow, err, nil)
			return
		}
		b.record(flow, nil)
		b.send(ctx, userID, b.renderTickets(page))

	case KindSelectTicket:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.NoTicketSelected)
			return
		}
		ticket, err := b.console.SelectTicket(ctx, userID, cmd.TargetID)
		b.finish(ctx, update, flow, err, func() string {
			return b.catalog.Format(messages.TicketDetail,
				"id", ticket.ID,
				"sender", ticket.Sender().Label(),
				"user_id", ticket.UserID,
				"message", ticket.Message,
			)
		})

	case KindCreateCode:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.CodeUsage)
			return
		}
		code, err := b.console.CreateCodeFromSpec(ctx, userID, cmd.Spec)
		b.finish(ctx, update, flow, err, func() string {
			return b.catalog.Format(messages.CodeCreated, "code", code.Code, "reward", code.Reward)
		})

	case KindUsers:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.UnknownCommand)
			return
		}
		page, err := b.console.ListUsers(ctx, userID, cmd.Page)
		if err != nil {
			b.finish(ctx, update, flow, err, nil)
			return
		}
		b.record(flow, nil)
		b.send(ctx, userID, b.renderUsers(page))

	case KindSetRank:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.RankUsage)
			return
		}
		user, err := b.console.SetRank(ctx, userID, cmd.TargetID, cmd.Rank)
		b.finish(ctx, update, flow, err, func() string {
			return b.catalog.Format(messages.RankUpdated, "id", user.ID, "rank", user.Rank)
		})

	case KindAdjustBalance:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.BalanceUsage)
			return
		}
		user, err := b.console.AdjustBalance(ctx, userID, cmd.TargetID, cmd.Delta)
		b.finish(ctx, update, flow, err, func() string {
			return b.catalog.Format(messages.BalanceUpdated, "id", user.ID, "balance", user.Balance)
		})

	case KindToggleBlock:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.BlockUsage)
			return
		}
		user, err := b.console.ToggleBlock(ctx, userID, cmd.TargetID)
		b.finish(ctx, update, flow, err, func() string {
			return b.catalog.Format(messages.BlockUpdated, "id", user.ID, "blocked", user.Blocked)
		})

	case KindEvents:
		if cmd.Malformed {
			b.usage(ctx, update, flow, messages.UnknownCommand)
			return
		}
		page, err := b.console.ListEvents(ctx, cmd.Page)
		if err != nil {
			b.finish(ctx, update, flow, err, nil)
			return
		}
		b.record(flow, nil)
		b.sendEvents(ctx, userID, page)

	case KindNewEvent:
		err := b.console.BeginEvent(ctx, userID)
		b.finish(ctx, update, flow, err, func() string { return b.catalog.Get(messages.EventPrompt) })

	default:
		b.record("unknown", nil)
		b.sendText(ctx, userID, b.catalog.Get(messages.UnknownCommand))
	}
}

// finish sends the single acknowledgement of a flow: success() on nil err,
// otherwise the explanation of err.
func (b *Bot) finish(ctx context.Context, update transport.Update, flow string, err error, success func() string) {
	b.record(flow, err)
	if err == nil {
		if success != nil {
			b.sendText(ctx, update.SenderID, success())
		}
		return
	}
	if apperrors.IsFailure(err) {
		b.logger.Error("flow failed",
			zap.String("flow", flow),
			zap.Int64("user_id", update.SenderID),
			zap.Error(err),
		)
	}
	b.sendText(ctx, update.SenderID, b.explain(flow, err))
}

func (b *Bot) explain(flow string, err error) string {
	domainErr := apperrors.ToDomainError(err)
	switch domainErr.Code {
	case apperrors.CodeForbidden:
		return b.catalog.Get(messages.AccessDenied)
	case apperrors.CodeInvalidCode:
		return b.catalog.Get(messages.InvalidCode)
	case apperrors.CodeAlreadyRedeemed:
		return b.catalog.Get(messages.AlreadyRedeemed)
	case apperrors.CodeTicketAnswered:
		return b.catalog.Get(messages.TicketAnswered)
	case apperrors.CodeNoTicketSelected:
		return b.catalog.Get(messages.NoTicketSelected)
	case apperrors.CodeOperatorSender:
		return b.catalog.Get(messages.ContactOperatorDenied)
	case apperrors.CodeTransport:
		if flow == "reply" {
			return b.catalog.Get(messages.ReplyFailed)
		}
		return b.catalog.Get(messages.GenericFailure)
	case apperrors.CodeNotFound:
		switch flow {
		case "ticket", "reply":
			return b.catalog.Get(messages.TicketNotFound)
		case "account":
			return b.catalog.Get(messages.UserNotRegistered)
		default:
			return b.catalog.Get(messages.UserNotFound)
		}
	case apperrors.CodeConflict:
		if flow == "code" {
			return b.catalog.Format(messages.CodeExists, "code", domainErr.Details["code"])
		}
		return domainErr.Message
	case apperrors.CodeValidation:
		switch flow {
		case "code":
			return b.catalog.Get(messages.CodeUsage)
		case "newevent":
			return b.catalog.Get(messages.EventUsage)
		}
		return domainErr.Message
	default:
		return b.catalog.Get(messages.GenericFailure)
	}
}

func (b *Bot) usage(ctx context.Context, update transport.Update, flow, key string) {
	b.record(flow, apperrors.NewValidationError("malformed arguments", nil))
	b.sendText(ctx, update.SenderID, b.catalog.Get(key))
}

func (b *Bot) record(flow string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	b.metrics.RecordFlow(flow, outcome)
}

func (b *Bot) renderTickets(page service.Page[domain.Ticket]) transport.Message {
	if page.IsEmpty() {
		return transport.Message{Text: b.catalog.Get(messages.TicketsEmpty), Keyboard: b.pager("tickets", page.Number, false)}
	}
	lines := []string{b.catalog.Format(messages.TicketsHeader, "page", page.Number)}
	var row []transport.Button
	var keyboard transport.Keyboard
	for _, ticket := range page.Items {
		lines = append(lines, b.catalog.Format(messages.TicketLine,
			"id", ticket.ID,
			"sender", ticket.Sender().Label(),
			"preview", preview(ticket.Message),
		))
		row = append(row, transport.Button{
			Label: "#" + strconv.FormatInt(ticket.ID, 10),
			Data:  transport.CallbackData("ticket", ticket.ID),
		})
		if len(row) == 3 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, b.pager("tickets", page.Number, page.HasNext)...)
	return transport.Message{Text: strings.Join(lines, "\n"), Keyboard: keyboard}
}

func (b *Bot) renderUsers(page service.Page[domain.User]) transport.Message {
	if page.IsEmpty() {
		return transport.Message{Text: b.catalog.Get(messages.UsersEmpty), Keyboard: b.pager("users", page.Number, false)}
	}
	lines := []string{b.catalog.Format(messages.UsersHeader, "page", page.Number)}
	for _, user := range page.Items {
		blocked := ""
		if user.Blocked {
			blocked = " [blocked]"
		}
		lines = append(lines, b.catalog.Format(messages.UserLine,
			"id", user.ID,
			"sender", user.Profile().Label(),
			"rank", user.Rank,
			"balance", user.Balance,
			"blocked", blocked,
		))
	}
	return transport.Message{Text: strings.Join(lines, "\n"), Keyboard: b.pager("users", page.Number, page.HasNext)}
}

func (b *Bot) sendEvents(ctx context.Context, userID int64, page service.Page[domain.Event]) {
	if page.IsEmpty() {
		b.send(ctx, userID, transport.Message{Text: b.catalog.Get(messages.EventsEmpty), Keyboard: b.pager("events", page.Number, false)})
		return
	}
	b.sendText(ctx, userID, b.catalog.Format(messages.EventsHeader, "page", page.Number))
	for _, event := range page.Items {
		text := b.catalog.Format(messages.EventLine,
			"title", event.Title,
			"description", event.Description,
			"prize", event.Prize,
			"schedule", event.Schedule,
		)
		if event.Media != nil {
			if err := b.transport.SendMediaEcho(ctx, userID, *event.Media, text); err != nil {
				b.logger.Warn("send event media failed", zap.Int64("event_id", event.ID), zap.Error(err))
			}
			continue
		}
		b.sendText(ctx, userID, text)
	}
	if nav := b.pager("events", page.Number, page.HasNext); len(nav) > 0 {
		b.send(ctx, userID, transport.Message{Text: b.catalog.Get(messages.EventsPager), Keyboard: nav})
	}
}

func (b *Bot) pager(action string, number int, hasNext bool) transport.Keyboard {
	var row []transport.Button
	if number > 1 {
		row = append(row, transport.Button{Label: b.catalog.Get(messages.PagePrev), Data: transport.CallbackData(action, int64(number-1))})
	}
	if hasNext {
		row = append(row, transport.Button{Label: b.catalog.Get(messages.PageNext), Data: transport.CallbackData(action, int64(number+1))})
	}
	if len(row) == 0 {
		return nil
	}
	return transport.Keyboard{row}
}

func (b *Bot) mainMenu(user *domain.User) transport.Keyboard {
	keyboard := transport.Keyboard{
		{{Label: "Account", Data: "account"}, {Label: "Events", Data: "events:1"}},
		{{Label: "Contact", Data: "contact"}, {Label: "Redeem", Data: "redeem"}},
	}
	if user.IsOperator() {
		keyboard = append(keyboard, []transport.Button{
			{Label: "Tickets", Data: "tickets:1"},
			{Label: "Users", Data: "users:1"},
			{Label: "New event", Data: "newevent"},
		})
	}
	return keyboard
}

func (b *Bot) sendText(ctx context.Context, userID int64, text string) {
	b.send(ctx, userID, transport.Text(text))
}

func (b *Bot) send(ctx context.Context, userID int64, msg transport.Message) {
	if err := b.transport.SendMessage(ctx, userID, msg); err != nil {
		b.logger.Warn("send message failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (b *Bot) clearState(ctx context.Context, userID int64) {
	if err := b.tracker.ClearState(ctx, userID); err != nil {
		b.logger.Warn("clear conversation state failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func preview(message string) string {
	runes := []rune(strings.ReplaceAll(message, "\n", " "))
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
