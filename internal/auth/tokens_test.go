package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)

	signed, err := tokens.Generate(42, "sid-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := tokens.Validate(signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id: got %d", claims.UserID)
	}
	if claims.SessionID != "sid-1" {
		t.Fatalf("session id: got %s", claims.SessionID)
	}
}

func TestGenerateRequiresIdentity(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	if _, err := tokens.Generate(0, "sid-1"); err == nil {
		t.Fatal("expected an error for missing user id")
	}
	if _, err := tokens.Generate(42, ""); err == nil {
		t.Fatal("expected an error for missing session id")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenService("secret-a", time.Hour).Generate(42, "sid-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenService("secret-b", time.Hour).Validate(signed); err == nil {
		t.Fatal("expected validation to fail with a different secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Nanosecond)
	signed, err := tokens.Generate(42, "sid-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := tokens.Validate(signed); err == nil {
		t.Fatal("expected validation to fail after expiry")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	if _, err := tokens.Validate("not.a.jwt"); err == nil {
		t.Fatal("expected an error for malformed token")
	}
}
