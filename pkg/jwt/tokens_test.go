package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	token, err := GenerateToken(7, "user", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if userID != 7 {
		t.Fatalf("expected user 7, got %d", userID)
	}
	if claims.Role != "user" {
		t.Fatalf("expected role user, got %q", claims.Role)
	}
	if claims.Issuer != "taskpulse" {
		t.Fatalf("unexpected issuer: %q", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(7, "user", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other-secret"); err == nil {
		t.Fatal("expected signature mismatch error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken(7, "user", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "secret"); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("definitely.not.a-token", "secret"); err == nil {
		t.Fatal("expected parse error")
	}
}
