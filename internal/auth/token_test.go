package auth

import (
	"errors"
	"testing"
	"time"
)

func testUser() *User {
	return &User{
		ID:             "user-1",
		Name:           "Dana",
		Email:          "dana@example.com",
		Role:           RoleOwner,
		OrganizationID: "org-1",
	}
}

func TestTokenSignerRequiresSecret(t *testing.T) {
	if _, err := NewTokenSigner("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenSigner("   ", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	signer, err := NewTokenSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	token, expiresAt, err := signer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	identity, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", identity.UserID)
	}
	if identity.Email != "dana@example.com" {
		t.Fatalf("unexpected email: %s", identity.Email)
	}
	if identity.Role != RoleOwner {
		t.Fatalf("unexpected role: %s", identity.Role)
	}
	if identity.OrganizationID != "org-1" {
		t.Fatalf("unexpected org: %s", identity.OrganizationID)
	}
}

func TestTokenVerifyRejectsGarbage(t *testing.T) {
	signer, err := NewTokenSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := signer.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestTokenVerifyRejectsWrongSecret(t *testing.T) {
	issuerSigner, _ := NewTokenSigner("secret-a", time.Hour)
	verifier, _ := NewTokenSigner("secret-b", time.Hour)

	token, _, err := issuerSigner.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	signer, err := NewTokenSigner("test-secret", time.Hour, WithTokenClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	token, _, err := signer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := signer.Verify(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	clock = base.Add(2 * time.Hour)
	if _, err := signer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
