// Package messages holds the user-facing text catalog.
package messages

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// Catalog keys.
const (
	Welcome               = "welcome"
	MainMenu              = "main_menu"
	Account               = "account"
	UserNotRegistered     = "user_not_registered"
	ContactPrompt         = "contact_prompt"
	ContactSent           = "contact_sent"
	ContactOperatorDenied = "contact_operator_denied"
	Cancelled             = "cancelled"
	NothingToCancel       = "nothing_to_cancel"
	RedeemPrompt          = "redeem_prompt"
	RedeemSuccess         = "redeem_success"
	InvalidCode           = "invalid_code"
	AlreadyRedeemed       = "already_redeemed"
	AccessDenied          = "access_denied"
	GenericFailure        = "generic_failure"
	UnknownCommand        = "unknown_command"
	TicketsHeader         = "tickets_header"
	TicketsEmpty          = "tickets_empty"
	TicketLine            = "ticket_line"
	TicketDetail          = "ticket_detail"
	TicketNotFound        = "ticket_not_found"
	TicketAnswered        = "ticket_answered"
	NoTicketSelected      = "no_ticket_selected"
	NewTicket             = "new_ticket"
	TicketSelect          = "ticket_select"
	ReplyToUser           = "reply_to_user"
	ReplySent             = "reply_sent"
	ReplyFailed           = "reply_failed"
	CodeUsage             = "code_usage"
	CodeCreated           = "code_created"
	CodeExists            = "code_exists"
	UsersHeader           = "users_header"
	UsersEmpty            = "users_empty"
	UserLine              = "user_line"
	UserNotFound          = "user_not_found"
	RankUsage             = "rank_usage"
	RankUpdated           = "rank_updated"
	BalanceUsage          = "balance_usage"
	BalanceUpdated        = "balance_updated"
	BlockUsage            = "block_usage"
	BlockUpdated          = "block_updated"
	EventsHeader          = "events_header"
	EventsEmpty           = "events_empty"
	EventsPager           = "events_pager"
	EventLine             = "event_line"
	EventPrompt           = "event_prompt"
	EventUsage            = "event_usage"
	EventCreated          = "event_created"
	PagePrev              = "page_prev"
	PageNext              = "page_next"
)

// Catalog maps keys to templates with {name} placeholders.
type Catalog struct {
	texts map[string]string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("messages: embedded catalog: %v", err))
	}
	return c
}

// Load returns the embedded catalog overlaid with the file at path.
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading messages %s: %w", path, err)
	}
	override, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing messages %s: %w", path, err)
	}
	for key, text := range override.texts {
		if _, known := c.texts[key]; !known {
			return nil, fmt.Errorf("parsing messages %s: unknown key %q", path, key)
		}
		c.texts[key] = text
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	texts := make(map[string]string)
	if err := yaml.Unmarshal(data, &texts); err != nil {
		return nil, err
	}
	return &Catalog{texts: texts}, nil
}

// Get returns the raw template for key, or the key itself when missing.
func (c *Catalog) Get(key string) string {
	if text, ok := c.texts[key]; ok {
		return text
	}
	return key
}

// Format fills a template. pairs alternate placeholder name and value.
func (c *Catalog) Format(key string, pairs ...any) string {
	text := c.Get(key)
	if len(pairs) == 0 {
		return text
	}
	replacements := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		replacements = append(replacements, "{"+fmt.Sprint(pairs[i])+"}", fmt.Sprint(pairs[i+1]))
	}
	return strings.NewReplacer(replacements...).Replace(text)
}
