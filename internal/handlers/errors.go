package handlers

import (
	"errors"
	"log/slog"
	"strings"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// respondError maps service errors to a status and message. Server errors
// are logged and reported but never echoed to the client.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return errorJSON(c, fiber.StatusBadRequest, validationMessage(err))
	case errors.Is(err, services.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrProfileExists):
		return errorJSON(c, fiber.StatusConflict, capitalize(err.Error()))
	case errors.Is(err, services.ErrEmailNotVerified),
		errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrInactiveUser):
		return errorJSON(c, fiber.StatusBadRequest, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrIncorrectLogin):
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return errorJSON(c, fiber.StatusUnauthorized, capitalize(err.Error()))
	}

	slog.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", c.Locals("requestid"),
		"error", err.Error(),
	)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	if errors.Is(err, services.ErrEmailDelivery) {
		return errorJSON(c, fiber.StatusInternalServerError, "Could not send verification email")
	}
	return errorJSON(c, fiber.StatusInternalServerError, "Internal server error")
}

// validationMessage strips the ErrValidation prefix added by the services.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	return capitalize(msg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
