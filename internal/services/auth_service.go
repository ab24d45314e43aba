package services

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPassword = errors.New("invalid password")

// AuthService checks the single backend password and issues tokens for it.
// BACKEND_PASSWORD_HASH (bcrypt) takes precedence over the plain
// BACKEND_PASSWORD.
type AuthService struct {
	password     string
	passwordHash string
	tokens       *TokenService
}

func NewAuthService(password, passwordHash string, tokens *TokenService) *AuthService {
	return &AuthService{password: password, passwordHash: passwordHash, tokens: tokens}
}

// Login verifies the password and returns a signed access token.
func (s *AuthService) Login(password string) (string, error) {
	if err := s.checkPassword(password); err != nil {
		return "", err
	}
	return s.tokens.CreateAccessToken("user")
}

func (s *AuthService) checkPassword(password string) error {
	if s.passwordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
			return ErrInvalidPassword
		}
		return nil
	}
	if s.password == "" {
		return ErrInvalidPassword
	}
	if subtle.ConstantTimeCompare([]byte(s.password), []byte(password)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
