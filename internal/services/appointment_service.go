package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
)

// StatusNotFound is reported by StatusFor when no appointment links the pair.
const StatusNotFound = "not_found"

const maxRating = 5.0

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDateTime accepts ISO 8601 date-times with or without an offset. Values
// without an offset are taken as UTC.
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, validationError("invalid date_time format: %q", s)
}

// AppointmentService books appointments and records ratings. Flows touching
// two collections are not atomic; a concurrent writer may interleave
// between the read and the write.
type AppointmentService struct {
	appointments database.Collection
	doctors      database.Collection
	profiles     *ProfileService
}

func NewAppointmentService(store database.Store, profiles *ProfileService) *AppointmentService {
	return &AppointmentService{
		appointments: store.Collection(database.Appointments),
		doctors:      store.Collection(database.Doctors),
		profiles:     profiles,
	}
}

// Create books a pending appointment between a doctor profile id and a
// patient user id and bumps the doctor's appointments_count.
func (s *AppointmentService) Create(ctx context.Context, req *dto.AppointmentRequest) (*models.Appointment, error) {
	if strings.TrimSpace(req.DoctorID) == "" || strings.TrimSpace(req.PatientID) == "" {
		return nil, validationError("doctor_id and patient_id are required")
	}
	when, err := parseDateTime(req.DateTime)
	if err != nil {
		return nil, err
	}

	doctor, err := s.profiles.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.profiles.GetPatientByUserID(ctx, req.PatientID); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		DoctorID:  doctor.ID,
		PatientID: req.PatientID,
		DateTime:  when,
		Notes:     req.Notes,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	id, err := s.appointments.InsertOne(ctx, appt.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	appt.ID = id

	_, err = s.doctors.UpdateOne(ctx, database.Filter{database.IDField: doctor.ID}, database.Document{
		"appointments_count": doctor.AppointmentsCount + 1,
	})
	if err != nil {
		slog.Warn("failed to bump appointments_count", "doctor_id", doctor.ID, "error", err)
	}
	return appt, nil
}

// UpdateStatus sets any status string on the appointment.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return validationError("status is required")
	}
	n, err := s.appointments.UpdateOne(ctx, database.Filter{database.IDField: id}, database.Document{"status": status})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	doc, err := s.appointments.FindOne(ctx, database.Filter{database.IDField: id})
	if errors.Is(err, database.ErrNoDocuments) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.AppointmentFromDocument(doc), nil
}

func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID string) ([]*models.Appointment, error) {
	return s.list(ctx, database.Filter{"doctor_id": doctorID})
}

// ListForDoctorUser resolves the doctor profile owned by userID first.
func (s *AppointmentService) ListForDoctorUser(ctx context.Context, userID string) ([]*models.Appointment, error) {
	doctor, err := s.profiles.GetDoctorByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.ListForDoctor(ctx, doctor.ID)
}

func (s *AppointmentService) ListForPatient(ctx context.Context, patientID string) ([]*models.Appointment, error) {
	return s.list(ctx, database.Filter{"patient_id": patientID})
}

func (s *AppointmentService) list(ctx context.Context, filter database.Filter) ([]*models.Appointment, error) {
	docs, err := s.appointments.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Appointment, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.AppointmentFromDocument(d))
	}
	return out, nil
}

// StatusFor returns the status of the first appointment between the pair, or
// StatusNotFound.
func (s *AppointmentService) StatusFor(ctx context.Context, doctorID, patientID string) (string, error) {
	doc, err := s.appointments.FindOne(ctx, database.Filter{"doctor_id": doctorID, "patient_id": patientID})
	if errors.Is(err, database.ErrNoDocuments) {
		return StatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return models.AppointmentFromDocument(doc).Status, nil
}

// SubmitRating overwrites the rating of the appointment's doctor and marks
// the appointment rated. The last submission wins; ratings are not averaged.
func (s *AppointmentService) SubmitRating(ctx context.Context, appointmentID string, rating float64) (float64, error) {
	if math.IsNaN(rating) || math.IsInf(rating, 0) || rating <= 0 || rating > maxRating {
		return 0, validationError("rating must be greater than 0 and at most %.0f", maxRating)
	}
	appt, err := s.Get(ctx, appointmentID)
	if err != nil {
		return 0, err
	}

	n, err := s.doctors.UpdateOne(ctx, database.Filter{database.IDField: appt.DoctorID}, database.Document{"rating": rating})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrDoctorNotFound
	}

	if _, err := s.appointments.UpdateOne(ctx, database.Filter{database.IDField: appt.ID}, database.Document{"has_rated": true}); err != nil {
		return 0, fmt.Errorf("failed to mark appointment rated: %w", err)
	}
	return rating, nil
}

func (s *AppointmentService) HasRated(ctx context.Context, appointmentID string) (bool, error) {
	appt, err := s.Get(ctx, appointmentID)
	if err != nil {
		return false, err
	}
	return appt.HasRated, nil
}
