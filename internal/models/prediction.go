package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
)

// PredictionHistory is written once per analysed image and never modified.
type PredictionHistory struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ImagePath      string    `json:"image_path"`
	PredictedClass string    `json:"predicted_class"`
	Confidence     float64   `json:"confidence"`
	Conclusion     string    `json:"conclusion"`
	Description    string    `json:"description"`
	PredictedAt    time.Time `json:"predicted_at"`
}

func (p *PredictionHistory) Document() database.Document {
	return database.Document{
		"user_id":         p.UserID,
		"image_path":      p.ImagePath,
		"predicted_class": p.PredictedClass,
		"confidence":      p.Confidence,
		"conclusion":      p.Conclusion,
		"description":     p.Description,
		"predicted_at":    p.PredictedAt,
	}
}

func PredictionFromDocument(d database.Document) *PredictionHistory {
	return &PredictionHistory{
		ID:             d.ID(),
		UserID:         str(d, "user_id"),
		ImagePath:      str(d, "image_path"),
		PredictedClass: str(d, "predicted_class"),
		Confidence:     float(d, "confidence"),
		Conclusion:     str(d, "conclusion"),
		Description:    str(d, "description"),
		PredictedAt:    timestamp(d, "predicted_at"),
	}
}
