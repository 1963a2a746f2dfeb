package middleware

import (
	"context"
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

const currentUserKey = "currentUser"

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Could not validate credentials",
	})
}

// JWTProtected verifies the bearer token signature and expiry and stores
// the parsed token under "user".
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: cfg.JWTAlgorithm, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

// UserResolver looks up the active user named by a token subject.
type UserResolver interface {
	ActiveUser(ctx context.Context, email string) (*models.User, error)
}

// ActiveUser must run after JWTProtected. It rejects tokens whose user is
// gone (401) or deactivated (400).
func ActiveUser(users UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return unauthorized(c)
		}
		email, err := services.SubjectFromClaims(token.Claims)
		if err != nil {
			return unauthorized(c)
		}

		user, err := users.ActiveUser(c.UserContext(), email)
		switch {
		case errors.Is(err, services.ErrInactiveUser):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Inactive user",
			})
		case err != nil:
			return unauthorized(c)
		}

		c.Locals(currentUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by ActiveUser, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserKey).(*models.User)
	return user
}
