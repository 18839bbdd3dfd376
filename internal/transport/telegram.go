package transport

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/domain"
)

// Telegram implements Transport on the Bot API with long polling.
type Telegram struct {
	bot         *tgbotapi.BotAPI
	pollTimeout int
	logger      *zap.Logger
}

// NewTelegram authorizes the bot token.
func NewTelegram(cfg config.TelegramConfig, logger *zap.Logger) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: TELEGRAM_TOKEN not set")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize: %w", err)
	}
	bot.Debug = cfg.Debug
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return &Telegram{bot: bot, pollTimeout: cfg.PollTimeout(), logger: logger}, nil
}

// SendMessage sends text with an optional inline keyboard.
func (t *Telegram) SendMessage(_ context.Context, recipientID int64, msg Message) error {
	out := tgbotapi.NewMessage(recipientID, msg.Text)
	if len(msg.Keyboard) > 0 {
		out.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}
	if _, err := t.bot.Send(out); err != nil {
		return fmt.Errorf("telegram: send message to %d: %w", recipientID, err)
	}
	return nil
}

// SendMediaEcho re-sends a provider-hosted file by id with a caption.
func (t *Telegram) SendMediaEcho(ctx context.Context, recipientID int64, media domain.MediaRef, caption string) error {
	file := tgbotapi.FileID(media.FileID)
	var out tgbotapi.Chattable
	switch media.Kind {
	case domain.MediaPhoto:
		cfg := tgbotapi.NewPhoto(recipientID, file)
		cfg.Caption = caption
		out = cfg
	case domain.MediaVideo:
		cfg := tgbotapi.NewVideo(recipientID, file)
		cfg.Caption = caption
		out = cfg
	case domain.MediaAnimation:
		cfg := tgbotapi.NewAnimation(recipientID, file)
		cfg.Caption = caption
		out = cfg
	case domain.MediaDocument:
		cfg := tgbotapi.NewDocument(recipientID, file)
		cfg.Caption = caption
		out = cfg
	case domain.MediaAudio:
		cfg := tgbotapi.NewAudio(recipientID, file)
		cfg.Caption = caption
		out = cfg
	case domain.MediaVoice:
		cfg := tgbotapi.NewVoice(recipientID, file)
		cfg.Caption = caption
		out = cfg
	case domain.MediaSticker:
		// stickers carry no caption
		if _, err := t.bot.Send(tgbotapi.NewSticker(recipientID, file)); err != nil {
			return fmt.Errorf("telegram: send sticker to %d: %w", recipientID, err)
		}
		if caption == "" {
			return nil
		}
		return t.SendMessage(ctx, recipientID, Text(caption))
	default:
		return fmt.Errorf("telegram: unsupported media kind %q", media.Kind)
	}
	if _, err := t.bot.Send(out); err != nil {
		return fmt.Errorf("telegram: send %s to %d: %w", media.Kind, recipientID, err)
	}
	return nil
}

// Run polls for updates and hands each one to handle until ctx is done.
func (t *Telegram) Run(ctx context.Context, handle func(Update)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("telegram polling started", zap.Int("timeout_seconds", t.pollTimeout))

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info("telegram polling stopped")
			return
		case raw, ok := <-updates:
			if !ok {
				return
			}
			update, ok := FromTelegram(raw)
			if !ok {
				continue
			}
			if update.IsCallback() {
				if _, err := t.bot.Request(tgbotapi.NewCallback(update.CallbackID, "")); err != nil {
					t.logger.Warn("answer callback failed", zap.Error(err))
				}
			}
			handle(update)
		}
	}
}

// FromTelegram converts a Bot API update. Updates without a sender are dropped.
func FromTelegram(raw tgbotapi.Update) (Update, bool) {
	if query := raw.CallbackQuery; query != nil && query.From != nil {
		return Update{
			UpdateID:   raw.UpdateID,
			SenderID:   query.From.ID,
			Profile:    profileOf(query.From),
			Callback:   query.Data,
			CallbackID: query.ID,
		}, true
	}

	message := raw.Message
	if message == nil || message.From == nil {
		return Update{}, false
	}
	update := Update{
		UpdateID: raw.UpdateID,
		SenderID: message.From.ID,
		Profile:  profileOf(message.From),
		Text:     message.Text,
		Media:    mediaOf(message),
	}
	if update.Media != nil {
		update.Text = message.Caption
	}
	if message.ReplyToMessage != nil {
		update.ReplyTo = message.ReplyToMessage.MessageID
	}
	return update, true
}

func profileOf(user *tgbotapi.User) domain.Profile {
	return domain.Profile{
		DisplayName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		Handle:      user.UserName,
	}
}

func mediaOf(message *tgbotapi.Message) *domain.MediaRef {
	ref := func(kind domain.MediaKind, fileID string) *domain.MediaRef {
		return &domain.MediaRef{Kind: kind, FileID: fileID, Caption: message.Caption}
	}
	switch {
	case len(message.Photo) > 0:
		// sizes are ascending; keep the largest
		return ref(domain.MediaPhoto, message.Photo[len(message.Photo)-1].FileID)
	case message.Video != nil:
		return ref(domain.MediaVideo, message.Video.FileID)
	case message.Animation != nil:
		return ref(domain.MediaAnimation, message.Animation.FileID)
	case message.Document != nil:
		return ref(domain.MediaDocument, message.Document.FileID)
	case message.Voice != nil:
		return ref(domain.MediaVoice, message.Voice.FileID)
	case message.Audio != nil:
		return ref(domain.MediaAudio, message.Audio.FileID)
	case message.Sticker != nil:
		return ref(domain.MediaSticker, message.Sticker.FileID)
	}
	return nil
}

func inlineKeyboard(keyboard Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
