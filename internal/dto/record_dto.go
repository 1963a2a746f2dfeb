package dto

// ProfileRequest is the multipart form for profile completion. Doctor-only
// fields are ignored for patients.
type ProfileRequest struct {
	UserName        string `form:"user_name"`
	Specialty       string `form:"specialty"`
	Hospital        string `form:"hospital"`
	DOB             string `form:"dob"`
	YearsExperience *int   `form:"years_experience" validate:"omitempty,gte=0"`
	Contact         string `form:"contact" validate:"required"`
}

type AppointmentRequest struct {
	PatientID string  `json:"patient_id" form:"patient_id" validate:"required"`
	DoctorID  string  `json:"doctor_id" form:"doctor_id" validate:"required"`
	DateTime  string  `json:"date_time" form:"date_time" validate:"required"`
	Notes     *string `json:"notes" form:"notes"`
}

type StatusRequest struct {
	Status string `json:"status" form:"status" validate:"required"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type RatingRequest struct {
	AppointmentID string  `json:"appointment_id" form:"appointment_id" validate:"required"`
	Rating        float64 `json:"rating" form:"rating" validate:"gt=0,lte=5"`
}

// PredictionResponse mirrors the classifier output returned by /analyze.
type PredictionResponse struct {
	ID             string             `json:"id"`
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	AllPredictions map[string]float64 `json:"all_predictions"`
	Conclusion     string             `json:"conclusion"`
	LowConfidence  bool               `json:"low_confidence"`
	IsBenign       bool               `json:"is_benign"`
	Description    string             `json:"description"`
}
