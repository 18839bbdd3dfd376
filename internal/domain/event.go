package domain

import "time"

// Event is an announcement created from the console and listed publicly.
type Event struct {
	ID          int64
	Title       string
	Description string
	Prize       string
	Schedule    string
	Media       *MediaRef
	CreatorID   int64
	CreatedAt   time.Time
}
