package handlers

import (
	"errors"
	"net/http"

	"captioner-backend/internal/models"
	"captioner-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LoginHandler authenticates the backend password and returns a bearer token.
func LoginHandler(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}

		token, err := authService.Login(req.Password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidPassword) {
				return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid password"})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(models.LoginResponse{AccessToken: token, TokenType: "bearer"})
	}
}

// NewAuthMiddleware verifies the bearer token on protected routes. The token
// comes from the Authorization header or the access_token query param.
func NewAuthMiddleware(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("access_token")
		if token == "" {
			authHeader := c.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}
		}

		if token == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals("subject", claims.Subject)
		return c.Next()
	}
}
