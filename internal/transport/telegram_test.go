package transport

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/spec-kit/relay-desk/internal/domain"
)

func TestFromTelegramTextMessage(t *testing.T) {
	raw := tgbotapi.Update{
		UpdateID: 3,
		Message: &tgbotapi.Message{
			From:           &tgbotapi.User{ID: 11, FirstName: "Ana", LastName: "Lee", UserName: "ana"},
			Text:           "hello",
			ReplyToMessage: &tgbotapi.Message{MessageID: 99},
		},
	}
	update, ok := FromTelegram(raw)
	if !ok {
		t.Fatalf("update dropped")
	}
	if update.SenderID != 11 || update.Text != "hello" || update.ReplyTo != 99 {
		t.Fatalf("unexpected update: %+v", update)
	}
	if update.Profile.DisplayName != "Ana Lee" || update.Profile.Handle != "ana" {
		t.Fatalf("unexpected profile: %+v", update.Profile)
	}
	if update.Media != nil || update.IsCallback() {
		t.Fatalf("text message misclassified: %+v", update)
	}
}

func TestFromTelegramPhotoKeepsLargestSize(t *testing.T) {
	raw := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:    &tgbotapi.User{ID: 5},
			Caption: "look",
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small"},
				{FileID: "large"},
			},
		},
	}
	update, ok := FromTelegram(raw)
	if !ok || update.Media == nil {
		t.Fatalf("media not extracted: %+v", update)
	}
	if update.Media.Kind != domain.MediaPhoto || update.Media.FileID != "large" {
		t.Fatalf("unexpected media: %+v", update.Media)
	}
	if got := update.Content().String(); got != "[photo] look" {
		t.Fatalf("unexpected content rendering %q", got)
	}
}

func TestFromTelegramCallback(t *testing.T) {
	raw := tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: 8, UserName: "op"},
			Data: "ticket:4",
		},
	}
	update, ok := FromTelegram(raw)
	if !ok || !update.IsCallback() {
		t.Fatalf("callback not recognized: %+v", update)
	}
	if update.Callback != "ticket:4" || update.SenderID != 8 {
		t.Fatalf("unexpected callback update: %+v", update)
	}
}

func TestFromTelegramDropsSenderless(t *testing.T) {
	if _, ok := FromTelegram(tgbotapi.Update{Message: &tgbotapi.Message{Text: "x"}}); ok {
		t.Fatalf("channel post without sender should be dropped")
	}
	if _, ok := FromTelegram(tgbotapi.Update{}); ok {
		t.Fatalf("empty update should be dropped")
	}
}

func TestInlineKeyboardShape(t *testing.T) {
	markup := inlineKeyboard(Keyboard{
		{{Label: "#1", Data: "ticket:1"}, {Label: "#2", Data: "ticket:2"}},
		{{Label: "Next", Data: "tickets:2"}},
	})
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard: %+v", markup.InlineKeyboard)
	}
	data := markup.InlineKeyboard[1][0].CallbackData
	if data == nil || *data != "tickets:2" {
		t.Fatalf("callback data lost")
	}
}
