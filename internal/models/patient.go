package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
)

type Patient struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	DOB       string    `json:"dob"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Patient) Document() database.Document {
	return database.Document{
		"user_id":    p.UserID,
		"user_name":  p.UserName,
		"dob":        p.DOB,
		"contact":    p.Contact,
		"created_at": p.CreatedAt,
	}
}

func PatientFromDocument(d database.Document) *Patient {
	return &Patient{
		ID:        d.ID(),
		UserID:    str(d, "user_id"),
		UserName:  str(d, "user_name"),
		DOB:       str(d, "dob"),
		Contact:   str(d, "contact"),
		CreatedAt: timestamp(d, "created_at"),
	}
}
