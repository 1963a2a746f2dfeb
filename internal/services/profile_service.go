package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
)

// DoctorImageFolder is where profile pictures land inside the image store.
const DoctorImageFolder = "uploads/doctors"

// Upload is an in-memory file taken from a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ProfileService struct {
	users    database.Collection
	doctors  database.Collection
	patients database.Collection
	images   ImageStore
}

func NewProfileService(store database.Store, images ImageStore) *ProfileService {
	return &ProfileService{
		users:    store.Collection(database.Users),
		doctors:  store.Collection(database.Doctors),
		patients: store.Collection(database.Patients),
		images:   images,
	}
}

// CompleteDoctor creates the doctor profile for userID. Specialty, hospital,
// years of experience and contact are required; image is optional. The store
// keeps user_id unique, so a racing second completion is ErrProfileExists.
func (s *ProfileService) CompleteDoctor(ctx context.Context, userID string, req *dto.ProfileRequest, image *Upload) (*models.Doctor, error) {
	if strings.TrimSpace(req.Specialty) == "" || strings.TrimSpace(req.Hospital) == "" || req.YearsExperience == nil {
		return nil, validationError("missing doctor fields")
	}
	if *req.YearsExperience < 0 {
		return nil, validationError("years_experience must not be negative")
	}
	if strings.TrimSpace(req.Contact) == "" {
		return nil, validationError("contact is required")
	}
	if err := s.checkOwner(ctx, userID, models.RoleDoctor); err != nil {
		return nil, err
	}
	if _, err := s.GetDoctorByUserID(ctx, userID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, ErrDoctorNotFound) {
		return nil, err
	}

	doctor := &models.Doctor{
		UserID:          userID,
		UserName:        req.UserName,
		Specialty:       req.Specialty,
		Hospital:        req.Hospital,
		YearsExperience: *req.YearsExperience,
		Contact:         req.Contact,
		CreatedAt:       time.Now().UTC(),
	}
	if image != nil && len(image.Data) > 0 {
		name := fmt.Sprintf("doctor_%s_%s", userID, image.Filename)
		path, err := s.images.Save(ctx, DoctorImageFolder, name, image.Data)
		if err != nil {
			return nil, err
		}
		doctor.ProfileImageURL = path
	}

	id, err := s.doctors.InsertOne(ctx, doctor.Document())
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrProfileExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create doctor profile: %w", err)
	}
	doctor.ID = id
	return doctor, nil
}

func (s *ProfileService) CompletePatient(ctx context.Context, userID string, req *dto.ProfileRequest) (*models.Patient, error) {
	if strings.TrimSpace(req.Contact) == "" {
		return nil, validationError("contact is required")
	}
	if err := s.checkOwner(ctx, userID, models.RolePatient); err != nil {
		return nil, err
	}
	if _, err := s.GetPatientByUserID(ctx, userID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, ErrPatientNotFound) {
		return nil, err
	}

	patient := &models.Patient{
		UserID:    userID,
		UserName:  req.UserName,
		DOB:       req.DOB,
		Contact:   req.Contact,
		CreatedAt: time.Now().UTC(),
	}
	id, err := s.patients.InsertOne(ctx, patient.Document())
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrProfileExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create patient profile: %w", err)
	}
	patient.ID = id
	return patient, nil
}

// checkOwner requires userID to name an existing user registered with role.
func (s *ProfileService) checkOwner(ctx context.Context, userID, role string) error {
	doc, err := s.users.FindOne(ctx, database.Filter{database.IDField: userID})
	if errors.Is(err, database.ErrNoDocuments) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if user := models.UserFromDocument(doc); user.Role != role {
		return validationError("user is not registered as %s", role)
	}
	return nil
}

func (s *ProfileService) GetDoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	return s.findDoctor(ctx, database.Filter{"user_id": userID})
}

func (s *ProfileService) GetDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	return s.findDoctor(ctx, database.Filter{database.IDField: id})
}

func (s *ProfileService) findDoctor(ctx context.Context, filter database.Filter) (*models.Doctor, error) {
	doc, err := s.doctors.FindOne(ctx, filter)
	if errors.Is(err, database.ErrNoDocuments) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.DoctorFromDocument(doc), nil
}

func (s *ProfileService) GetPatientByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	doc, err := s.patients.FindOne(ctx, database.Filter{"user_id": userID})
	if errors.Is(err, database.ErrNoDocuments) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.PatientFromDocument(doc), nil
}

func (s *ProfileService) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	docs, err := s.doctors.Find(ctx, database.Filter{})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Doctor, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.DoctorFromDocument(d))
	}
	return out, nil
}
