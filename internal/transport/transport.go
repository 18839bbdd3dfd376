// Package transport connects the relay to a chat messaging provider.
package transport

import (
	"context"
	"strconv"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// Button is one inline keyboard entry. Data comes back as Update.Callback.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of inline buttons, row by row.
type Keyboard [][]Button

// CallbackData encodes a button action with its numeric argument.
func CallbackData(action string, arg int64) string {
	return action + ":" + strconv.FormatInt(arg, 10)
}

// Message is an outbound text with an optional inline keyboard.
type Message struct {
	Text     string
	Keyboard Keyboard
}

// Text builds a plain message.
func Text(text string) Message {
	return Message{Text: text}
}

// Update is an inbound event normalized away from the provider types.
type Update struct {
	UpdateID   int
	SenderID   int64
	Profile    domain.Profile
	Text       string
	Media      *domain.MediaRef
	ReplyTo    int
	Callback   string
	CallbackID string
}

// IsCallback reports whether the update is a button press.
func (u Update) IsCallback() bool {
	return u.CallbackID != ""
}

// Content returns the text or media carried by a message update.
func (u Update) Content() domain.Content {
	return domain.Content{Text: u.Text, Media: u.Media}
}

// Transport delivers outbound messages. Errors mean the provider rejected
// or never received the message.
type Transport interface {
	SendMessage(ctx context.Context, recipientID int64, msg Message) error
	SendMediaEcho(ctx context.Context, recipientID int64, media domain.MediaRef, caption string) error
}
