package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
)

const StatusPending = "pending"

// Appointment links a doctor profile id with a patient's user id. Status is
// free-form after creation.
type Appointment struct {
	ID        string    `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	DateTime  time.Time `json:"date_time"`
	Notes     *string   `json:"notes"`
	Status    string    `json:"status"`
	HasRated  bool      `json:"has_rated"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Appointment) Document() database.Document {
	doc := database.Document{
		"doctor_id":  a.DoctorID,
		"patient_id": a.PatientID,
		"date_time":  a.DateTime,
		"status":     a.Status,
		"has_rated":  a.HasRated,
		"created_at": a.CreatedAt,
	}
	if a.Notes != nil {
		doc["notes"] = *a.Notes
	}
	return doc
}

func AppointmentFromDocument(d database.Document) *Appointment {
	return &Appointment{
		ID:        d.ID(),
		DoctorID:  str(d, "doctor_id"),
		PatientID: str(d, "patient_id"),
		DateTime:  timestamp(d, "date_time"),
		Notes:     optStr(d, "notes"),
		Status:    str(d, "status"),
		HasRated:  boolean(d, "has_rated"),
		CreatedAt: timestamp(d, "created_at"),
	}
}
