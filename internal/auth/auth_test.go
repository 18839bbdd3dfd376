package auth

import (
	"testing"

	"github.com/spec-kit/relay-desk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	meta, token, err := tm.GenerateToken(1016554091, domain.SubjectTypeOperator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !meta.ExpiresAt.After(meta.IssuedAt) {
		t.Fatalf("expiry not after issue time: %+v", meta)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 1016554091 || claims.Subject != domain.SubjectTypeOperator {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.RegisteredClaims.Subject != "1016554091" {
		t.Fatalf("unexpected registered subject %q", claims.RegisteredClaims.Subject)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	_, token, err := NewTokenManager("one", 5).GenerateToken(1, domain.SubjectTypeOperator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("two", 5).ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "hunter2"); err != nil {
		t.Fatalf("matching password rejected: %v", err)
	}
	if err := ComparePassword(hash, "hunter3"); err == nil {
		t.Fatalf("wrong password accepted")
	}
	if err := ComparePassword("", "hunter2"); err == nil {
		t.Fatalf("empty hash accepted")
	}
	if _, err := HashPassword("  ", 4); err != ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}
