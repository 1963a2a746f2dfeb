package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

type AppointmentHandler struct {
	appointments *services.AppointmentService
}

func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

func (h *AppointmentHandler) Create(c *fiber.Ctx) error {
	var req dto.AppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	appt, err := h.appointments.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	if err := h.appointments.UpdateStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: req.Status})
}

// ForDoctor takes the doctor's user id and lists appointments booked on
// their profile.
func (h *AppointmentHandler) ForDoctor(c *fiber.Ctx) error {
	appts, err := h.appointments.ListForDoctorUser(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(appts) == 0 {
		return errorJSON(c, fiber.StatusNotFound, "No appointments found for this doctor")
	}
	return c.JSON(appts)
}

func (h *AppointmentHandler) ForPatient(c *fiber.Ctx) error {
	appts, err := h.appointments.ListForPatient(c.UserContext(), c.Params("patient_id"))
	if err != nil {
		return respondError(c, err)
	}
	if len(appts) == 0 {
		return errorJSON(c, fiber.StatusNotFound, "No appointments found for this patient")
	}
	return c.JSON(appts)
}

func (h *AppointmentHandler) Status(c *fiber.Ctx) error {
	doctorID, patientID := c.Query("doctor_id"), c.Query("patient_id")
	if doctorID == "" || patientID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "doctor_id and patient_id are required")
	}

	status, err := h.appointments.StatusFor(c.UserContext(), doctorID, patientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatusResponse{Status: status})
}

func (h *AppointmentHandler) SetRating(c *fiber.Ctx) error {
	var req dto.RatingRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := services.Validate(&req); err != nil {
		return respondError(c, err)
	}

	rating, err := h.appointments.SubmitRating(c.UserContext(), req.AppointmentID, req.Rating)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rating)
}

func (h *AppointmentHandler) HasRated(c *fiber.Ctx) error {
	id := c.Query("appointment_id")
	if id == "" {
		return errorJSON(c, fiber.StatusBadRequest, "appointment_id is required")
	}

	rated, err := h.appointments.HasRated(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rated)
}
