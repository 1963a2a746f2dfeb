package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
)

type HealthHandler struct {
	store database.Store
}

func NewHealthHandler(store database.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.store.Ping(c.UserContext()); err != nil {
		slog.Error("store ping failed", "store", h.store.Name(), "error", err)
		dbStatus = "unhealthy"
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Store:     h.store.Name(),
		DB:        dbStatus,
	})
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(dto.MessageResponse{Message: "Skin Cancer Detection API is running"})
}
