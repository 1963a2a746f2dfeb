package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
)

// Doctor is the profile linked one-to-one with a doctor User.
type Doctor struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	UserName          string    `json:"user_name"`
	Specialty         string    `json:"specialty"`
	Hospital          string    `json:"hospital"`
	YearsExperience   int       `json:"years_experience"`
	Contact           string    `json:"contact"`
	Rating            *float64  `json:"rating"`
	ProfileImageURL   string    `json:"profile_image_url"`
	AppointmentsCount int       `json:"appointments_count"`
	CreatedAt         time.Time `json:"created_at"`
}

func (d *Doctor) Document() database.Document {
	doc := database.Document{
		"user_id":            d.UserID,
		"user_name":          d.UserName,
		"specialty":          d.Specialty,
		"hospital":           d.Hospital,
		"years_experience":   d.YearsExperience,
		"contact":            d.Contact,
		"profile_image_url":  d.ProfileImageURL,
		"appointments_count": d.AppointmentsCount,
		"created_at":         d.CreatedAt,
	}
	if d.Rating != nil {
		doc["rating"] = *d.Rating
	}
	return doc
}

func DoctorFromDocument(d database.Document) *Doctor {
	return &Doctor{
		ID:                d.ID(),
		UserID:            str(d, "user_id"),
		UserName:          str(d, "user_name"),
		Specialty:         str(d, "specialty"),
		Hospital:          str(d, "hospital"),
		YearsExperience:   integer(d, "years_experience"),
		Contact:           str(d, "contact"),
		Rating:            optFloat(d, "rating"),
		ProfileImageURL:   str(d, "profile_image_url"),
		AppointmentsCount: integer(d, "appointments_count"),
		CreatedAt:         timestamp(d, "created_at"),
	}
}
