package services

import (
	"strings"
	"testing"
	"time"
)

func TestCreateAndValidateToken(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.CreateAccessToken("user")
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a JWT with three segments, got %q", token)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.Subject != "user" {
		t.Fatalf("expected subject %q, got %q", "user", claims.Subject)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp claims to be set")
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Fatal("expected expiry in the future")
	}
}

func TestCreateTokenRequiresSecret(t *testing.T) {
	svc := NewTokenService("", time.Hour)
	if _, err := svc.CreateAccessToken("user"); err == nil {
		t.Fatal("expected error when secret is missing")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)
	token, err := svc.CreateAccessToken("user")
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}
	if _, err := svc.ValidateAccessToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.CreateAccessToken("user")
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}
	if _, err := verifier.ValidateAccessToken(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	if _, err := svc.ValidateAccessToken("not-a-token"); err == nil {
		t.Fatal("expected garbage token to be rejected")
	}
}
