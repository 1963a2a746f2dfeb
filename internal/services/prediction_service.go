package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/classifier"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
)

// PredictionFolder is where analysed images land inside the image store.
const PredictionFolder = "uploads"

// Classifier turns raw image bytes into a prediction.
type Classifier interface {
	Predict(data []byte) (*classifier.Result, error)
}

type PredictionService struct {
	history    database.Collection
	images     ImageStore
	classifier Classifier
}

func NewPredictionService(store database.Store, images ImageStore, c Classifier) *PredictionService {
	return &PredictionService{
		history:    store.Collection(database.PredictionHistory),
		images:     images,
		classifier: c,
	}
}

// Analyze stores the image, classifies it and records the outcome for userID.
func (s *PredictionService) Analyze(ctx context.Context, userID string, image *Upload) (*classifier.Result, *models.PredictionHistory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, validationError("user_id is required")
	}
	if image == nil || len(image.Data) == 0 {
		return nil, nil, validationError("image is required")
	}
	if !strings.HasPrefix(image.ContentType, "image/") {
		return nil, nil, validationError("only image files are allowed")
	}

	path, err := s.images.Save(ctx, PredictionFolder, image.Filename, image.Data)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.classifier.Predict(image.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("prediction failed: %w", err)
	}

	entry, err := s.Record(ctx, &models.PredictionHistory{
		UserID:         userID,
		ImagePath:      path,
		PredictedClass: result.PredictedClass,
		Confidence:     result.Confidence,
		Conclusion:     result.Conclusion,
		Description:    result.Description,
	})
	if err != nil {
		return nil, nil, err
	}
	return result, entry, nil
}

// Record inserts an entry; PredictedAt defaults to now.
func (s *PredictionService) Record(ctx context.Context, entry *models.PredictionHistory) (*models.PredictionHistory, error) {
	if entry.Confidence < 0 || entry.Confidence > 1 {
		return nil, validationError("confidence must be within [0,1]")
	}
	if entry.PredictedAt.IsZero() {
		entry.PredictedAt = time.Now().UTC()
	}
	id, err := s.history.InsertOne(ctx, entry.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to record prediction: %w", err)
	}
	entry.ID = id
	return entry, nil
}

func (s *PredictionService) Get(ctx context.Context, id string) (*models.PredictionHistory, error) {
	doc, err := s.history.FindOne(ctx, database.Filter{database.IDField: id})
	if errors.Is(err, database.ErrNoDocuments) {
		return nil, ErrPredictionNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.PredictionFromDocument(doc), nil
}

// List returns entries newest first, optionally restricted to one user.
func (s *PredictionService) List(ctx context.Context, userID string) ([]*models.PredictionHistory, error) {
	filter := database.Filter{}
	if userID != "" {
		filter["user_id"] = userID
	}
	docs, err := s.history.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PredictionHistory, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.PredictionFromDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PredictedAt.After(out[j].PredictedAt)
	})
	return out, nil
}
