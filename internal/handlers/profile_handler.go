package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	maxBytes int64
}

func NewProfileHandler(profiles *services.ProfileService, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, maxBytes: maxUploadBytes}
}

// Complete creates the doctor or patient profile selected by ?role=.
func (h *ProfileHandler) Complete(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	role := c.Query("role")
	if !models.ValidRole(role) {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "role must be doctor or patient")
	}

	var req dto.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid form data")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if role == models.RolePatient {
		patient, err := h.profiles.CompletePatient(c.UserContext(), userID, &req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(patient)
	}

	image, err := readUpload(c, "profile_image", h.maxBytes)
	if errors.Is(err, errUploadTooLarge) {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", megabytes(h.maxBytes)))
	}
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid form data")
	}
	doctor, err := h.profiles.CompleteDoctor(c.UserContext(), userID, &req, image)
	if err != nil {
		return respondError(c, err)
	}
	doctor.ProfileImageURL = publicURL(c, doctor.ProfileImageURL)
	return c.JSON(doctor)
}

func (h *ProfileHandler) GetDoctor(c *fiber.Ctx) error {
	doctor, err := h.profiles.GetDoctorByUserID(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	doctor.ProfileImageURL = publicURL(c, doctor.ProfileImageURL)
	return c.JSON(doctor)
}

func (h *ProfileHandler) GetPatient(c *fiber.Ctx) error {
	patient, err := h.profiles.GetPatientByUserID(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(patient)
}

func (h *ProfileHandler) ListDoctors(c *fiber.Ctx) error {
	doctors, err := h.profiles.ListDoctors(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if len(doctors) == 0 {
		return errorJSON(c, fiber.StatusNotFound, "No doctors found")
	}
	for _, d := range doctors {
		d.ProfileImageURL = publicURL(c, d.ProfileImageURL)
	}
	return c.JSON(doctors)
}
