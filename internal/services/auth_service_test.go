package services

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestLoginWithPlainPassword(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	auth := NewAuthService("hunter2", "", tokens)

	token, err := auth.Login("hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	claims, err := tokens.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("issued token did not validate: %v", err)
	}
	if claims.Subject != "user" {
		t.Fatalf("expected subject %q, got %q", "user", claims.Subject)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	auth := NewAuthService("hunter2", "", tokens)

	if _, err := auth.Login("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestLoginRejectsWhenNoPasswordConfigured(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	auth := NewAuthService("", "", tokens)

	if _, err := auth.Login(""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestLoginWithBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}

	tokens := NewTokenService("test-secret", time.Hour)
	auth := NewAuthService("", string(hash), tokens)

	if _, err := auth.Login("hunter2"); err != nil {
		t.Fatalf("Login with correct password failed: %v", err)
	}
	if _, err := auth.Login("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestBcryptHashTakesPrecedence(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("real"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}

	tokens := NewTokenService("test-secret", time.Hour)
	auth := NewAuthService("plain", string(hash), tokens)

	if _, err := auth.Login("plain"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected hash to win over the plain password, got %v", err)
	}
	if _, err := auth.Login("real"); err != nil {
		t.Fatalf("Login against the hash failed: %v", err)
	}
}
