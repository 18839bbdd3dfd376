package domain

import (
	"strings"
	"time"
)

// Rank is an ordered privilege tier.
type Rank string

const (
	RankGuest    Rank = "Guest"
	RankMember   Rank = "Member"
	RankCurator  Rank = "Curator"
	RankManager  Rank = "Manager"
	RankDirector Rank = "Director"
)

// Ranks lists every tier from lowest to highest.
var Ranks = []Rank{RankGuest, RankMember, RankCurator, RankManager, RankDirector}

// TopRank is the single tier allowed to run console actions.
const TopRank = RankDirector

// Level returns the position of r in Ranks, or -1 when unknown.
func (r Rank) Level() int {
	for i, candidate := range Ranks {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is a known tier.
func (r Rank) Valid() bool {
	return r.Level() >= 0
}

// ParseRank matches a tier name case-insensitively.
func ParseRank(raw string) (Rank, bool) {
	raw = strings.TrimSpace(raw)
	for _, candidate := range Ranks {
		if strings.EqualFold(string(candidate), raw) {
			return candidate, true
		}
	}
	return "", false
}

// Profile is the sender snapshot delivered by the transport.
type Profile struct {
	DisplayName string
	Handle      string
}

// Label picks the handle when present, then the display name.
func (p Profile) Label() string {
	if p.Handle != "" {
		return "@" + p.Handle
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "-"
}

// User is the domain model for anyone who talked to the bot.
type User struct {
	ID          int64
	DisplayName string
	Handle      string
	Rank        Rank
	Balance     int64
	Blocked     bool
	CreatedAt   time.Time
}

// IsOperator reports whether the user holds the top tier.
func (u *User) IsOperator() bool {
	return u != nil && u.Rank == TopRank
}

// Profile returns the stored profile snapshot.
func (u *User) Profile() Profile {
	return Profile{DisplayName: u.DisplayName, Handle: u.Handle}
}
