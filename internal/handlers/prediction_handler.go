package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

type PredictionHandler struct {
	predictions *services.PredictionService
	maxBytes    int64
}

func NewPredictionHandler(predictions *services.PredictionService, maxUploadBytes int64) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, maxBytes: maxUploadBytes}
}

func (h *PredictionHandler) Analyze(c *fiber.Ctx) error {
	image, err := readUpload(c, "image", h.maxBytes)
	if errors.Is(err, errUploadTooLarge) {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", megabytes(h.maxBytes)))
	}
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid form data")
	}
	if image == nil {
		return errorJSON(c, fiber.StatusBadRequest, "Image is required")
	}

	result, entry, err := h.predictions.Analyze(c.UserContext(), c.FormValue("user_id"), image)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PredictionResponse{
		ID:             entry.ID,
		PredictedClass: result.PredictedClass,
		Confidence:     result.Confidence,
		AllPredictions: result.AllPredictions,
		Conclusion:     result.Conclusion,
		LowConfidence:  result.LowConfidence,
		IsBenign:       result.IsBenign,
		Description:    result.Description,
	})
}

// History lists predictions newest first; ?user_id= narrows to one user.
func (h *PredictionHandler) History(c *fiber.Ctx) error {
	entries, err := h.predictions.List(c.UserContext(), c.Query("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

func (h *PredictionHandler) Get(c *fiber.Ctx) error {
	entry, err := h.predictions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}
