package service

import (
	"testing"

	"github.com/spec-kit/relay-desk/internal/domain"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

func TestStartPromotesConfiguredOperators(t *testing.T) {
	h := newHarness(t)
	if rank := h.user(t, directorID).Rank; rank != domain.RankDirector {
		t.Fatalf("configured operator has rank %s", rank)
	}
	if rank := h.user(t, guestID).Rank; rank != domain.RankGuest {
		t.Fatalf("regular user has rank %s", rank)
	}

	if _, err := h.console.SetRank(h.ctx, directorID, directorID, domain.RankMember); err != nil {
		t.Fatalf("demote: %v", err)
	}
	user, err := h.account.Start(h.ctx, directorID, domain.Profile{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if user.Rank != domain.RankDirector {
		t.Fatalf("operator not re-promoted on /start: %s", user.Rank)
	}
}

func TestAccountOfUnknownUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.account.Account(h.ctx, 4242)
	expectCode(t, err, apperrors.CodeNotFound)

	user, err := h.account.Account(h.ctx, guestID)
	if err != nil || user.Handle != "guest" {
		t.Fatalf("account: %+v %v", user, err)
	}
}
