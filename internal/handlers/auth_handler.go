package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SendVerification(c *fiber.Ctx) error {
	var req dto.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.SendVerification(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Verification code sent"})
}

func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.VerifyCode(c.UserContext(), req.Email, req.Code); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.VerifiedResponse{Verified: true})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login accepts the OAuth2 password form or the same fields as JSON.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	resp, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}
	return c.JSON(user)
}
