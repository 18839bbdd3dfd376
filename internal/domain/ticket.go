package domain

import (
	"fmt"
	"strings"
	"time"
)

// Ticket is an inbound message captured for operator attention.
type Ticket struct {
	ID          int64
	UserID      int64
	DisplayName string
	Handle      string
	Message     string
	Answered    bool
	CreatedAt   time.Time
}

// Sender returns the profile snapshot taken when the ticket was filed.
func (t *Ticket) Sender() Profile {
	return Profile{DisplayName: t.DisplayName, Handle: t.Handle}
}

// MediaKind names a non-text payload.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaVoice     MediaKind = "voice"
	MediaAudio     MediaKind = "audio"
	MediaSticker   MediaKind = "sticker"
	MediaAnimation MediaKind = "animation"
)

// MediaRef points at a provider-hosted file.
type MediaRef struct {
	Kind    MediaKind
	FileID  string
	Caption string
}

// Content is either raw text or a media payload.
type Content struct {
	Text  string
	Media *MediaRef
}

// IsEmpty reports content with neither text nor media.
func (c Content) IsEmpty() bool {
	return c.Media == nil && strings.TrimSpace(c.Text) == ""
}

// String renders content for storage: media becomes "[<kind>] <caption>".
func (c Content) String() string {
	if c.Media != nil {
		return strings.TrimSpace(fmt.Sprintf("[%s] %s", c.Media.Kind, c.Media.Caption))
	}
	return strings.TrimSpace(c.Text)
}
