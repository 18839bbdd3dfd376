// Package bot turns inbound chat updates into service calls.
package bot

import (
	"strconv"
	"strings"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/transport"
)

// Kind tags a parsed command.
type Kind int

const (
	// KindInput is free text or media, consumed by a pending flow.
	KindInput Kind = iota
	KindStart
	KindAccount
	KindContact
	KindCancel
	KindTickets
	KindSelectTicket
	KindRedeem
	KindCreateCode
	KindUsers
	KindSetRank
	KindAdjustBalance
	KindToggleBlock
	KindEvents
	KindNewEvent
	KindUnknown
)

var kindNames = map[Kind]string{
	KindInput:         "input",
	KindStart:         "start",
	KindAccount:       "account",
	KindContact:       "contact",
	KindCancel:        "cancel",
	KindTickets:       "tickets",
	KindSelectTicket:  "ticket",
	KindRedeem:        "redeem",
	KindCreateCode:    "code",
	KindUsers:         "users",
	KindSetRank:       "rank",
	KindAdjustBalance: "balance",
	KindToggleBlock:   "block",
	KindEvents:        "events",
	KindNewEvent:      "newevent",
	KindUnknown:       "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Command is the tagged variant every update is reduced to. Only the fields
// relevant to Kind are set. Malformed is true when arguments did not parse.
type Command struct {
	Kind      Kind
	Page      int
	TargetID  int64
	Rank      domain.Rank
	Delta     int64
	Spec      string
	Content   domain.Content
	Malformed bool
}

var namedKinds = map[string]Kind{
	"start":    KindStart,
	"account":  KindAccount,
	"contact":  KindContact,
	"cancel":   KindCancel,
	"tickets":  KindTickets,
	"ticket":   KindSelectTicket,
	"redeem":   KindRedeem,
	"code":     KindCreateCode,
	"users":    KindUsers,
	"rank":     KindSetRank,
	"balance":  KindAdjustBalance,
	"block":    KindToggleBlock,
	"events":   KindEvents,
	"newevent": KindNewEvent,
}

// Parse reduces an update to a Command. Slash commands and callback data
// share one grammar: "/name args" and "name:args".
func Parse(update transport.Update) Command {
	if update.IsCallback() {
		name, args, _ := strings.Cut(update.Callback, ":")
		return build(name, args)
	}
	if update.Media == nil && strings.HasPrefix(strings.TrimSpace(update.Text), "/") {
		name, args, _ := strings.Cut(strings.TrimSpace(update.Text)[1:], " ")
		// "/start@relaybot" in group chats
		name, _, _ = strings.Cut(name, "@")
		return build(name, args)
	}
	return Command{Kind: KindInput, Content: update.Content()}
}

func build(name, args string) Command {
	kind, ok := namedKinds[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Command{Kind: KindUnknown}
	}
	cmd := Command{Kind: kind}
	args = strings.TrimSpace(args)
	fields := strings.Fields(args)

	switch kind {
	case KindTickets, KindUsers, KindEvents:
		cmd.Page = 1
		if len(fields) > 0 {
			page, err := strconv.Atoi(fields[0])
			cmd.Page, cmd.Malformed = page, err != nil || page < 1
		}
	case KindSelectTicket, KindToggleBlock:
		cmd.TargetID, cmd.Malformed = parseID(fields, 0)
	case KindSetRank:
		cmd.TargetID, cmd.Malformed = parseID(fields, 0)
		if len(fields) < 2 {
			cmd.Malformed = true
			break
		}
		rank, ok := domain.ParseRank(strings.Join(fields[1:], " "))
		cmd.Rank = rank
		cmd.Malformed = cmd.Malformed || !ok
	case KindAdjustBalance:
		cmd.TargetID, cmd.Malformed = parseID(fields, 0)
		if len(fields) < 2 {
			cmd.Malformed = true
			break
		}
		delta, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "+"), 10, 64)
		cmd.Delta = delta
		cmd.Malformed = cmd.Malformed || err != nil || delta == 0
	case KindCreateCode:
		cmd.Spec = args
		cmd.Malformed = args == ""
	}
	return cmd
}

func parseID(fields []string, i int) (int64, bool) {
	if len(fields) <= i {
		return 0, true
	}
	id, err := strconv.ParseInt(fields[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, true
	}
	return id, false
}
