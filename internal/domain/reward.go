package domain

import (
	"strings"
	"time"
)

// RewardCode grants Reward balance units once per user.
type RewardCode struct {
	Code      string
	Reward    int64
	CreatedAt time.Time
}

// Redemption records one successful use of a code by a user.
type Redemption struct {
	UserID     int64
	Code       string
	RedeemedAt time.Time
}

// NormalizeCode trims and upper-cases a code as typed by a user.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
