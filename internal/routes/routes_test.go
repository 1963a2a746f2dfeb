package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/classifier"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

type inbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *inbox) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		m.last = make(map[string]string)
	}
	m.last[to] = body
	return nil
}

func (m *inbox) code(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	match := codePattern.FindStringSubmatch(m.last[to])
	require.Len(t, match, 2)
	return match[1]
}

type testServer struct {
	app   *fiber.App
	store database.Store
	mail  *inbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		JWTAlgorithm:    "HS256",
		JWTAccessExpiry: 30 * time.Minute,
		UploadDir:       t.TempDir(),
		MaxUploadBytes:  1_000_000,
		CORSOrigins:     "*",
	}
	store := database.NewMemoryStore()
	require.NoError(t, database.Seed(context.Background(), store))

	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm)
	require.NoError(t, err)
	mail := &inbox{}
	images := services.NewDiskImageStore(cfg.UploadDir)
	auth := services.NewAuthService(store, services.NewPasswordHasher(bcrypt.MinCost), tokens,
		services.NewVerificationService(services.NewMemoryCodeStore(), cfg.VerificationTTL), mail, cfg.JWTAccessExpiry)
	profiles := services.NewProfileService(store, images)
	appointments := services.NewAppointmentService(store, profiles)
	predictions := services.NewPredictionService(store, images, classifier.New())

	app := NewApp(cfg)
	Setup(app, cfg, Handlers{
		Auth:        handlers.NewAuthHandler(auth),
		Profile:     handlers.NewProfileHandler(profiles, cfg.MaxUploadBytes),
		Appointment: handlers.NewAppointmentHandler(appointments),
		Prediction:  handlers.NewPredictionHandler(predictions, cfg.MaxUploadBytes),
		Health:      handlers.NewHealthHandler(store),
		Users:       auth,
	})
	return &testServer{app: app, store: store, mail: mail}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (s *testServer) json(t *testing.T, method, path string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func (s *testServer) form(t *testing.T, path string, values url.Values) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req)
}

type filePart struct {
	field, name, contentType string
	data                     []byte
}

func (s *testServer) multipart(t *testing.T, path string, fields map[string]string, file *filePart) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(t, req)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

// register walks send-verification, verify-code and register for email.
func (s *testServer) register(t *testing.T, email, password, role string) string {
	t.Helper()
	status, body := s.json(t, http.MethodPost, "/send-verification", map[string]string{"email": email})
	require.Equal(t, fiber.StatusOK, status, string(body))
	status, body = s.json(t, http.MethodPost, "/verify-code", map[string]string{"email": email, "code": s.mail.code(t, email)})
	require.Equal(t, fiber.StatusOK, status, string(body))
	status, body = s.json(t, http.MethodPost, "/register", map[string]string{"email": email, "password": password, "role": role})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	return decode[map[string]any](t, body)["id"].(string)
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)
	status, body := s.json(t, http.MethodGet, "/", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), "Skin Cancer Detection API is running")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.json(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, fiber.StatusOK, status)
	h := decode[map[string]string](t, body)
	assert.Equal(t, "ok", h["status"])
	assert.Equal(t, "memory", h["store"])
	assert.Equal(t, "ok", h["db"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "a@x.com", "pw", "patient")
	assert.NotEmpty(t, userID)

	status, body := s.form(t, "/token", url.Values{"username": {"a@x.com"}, "password": {"pw"}})
	require.Equal(t, fiber.StatusOK, status, string(body))
	tok := decode[map[string]string](t, body)
	assert.Equal(t, "a@x.com", tok["email"])
	assert.Equal(t, "patient", tok["role"])
	assert.Equal(t, userID, tok["user_id"])

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok["access_token"])
	status, body = s.do(t, req)
	require.Equal(t, fiber.StatusOK, status, string(body))
	me := decode[map[string]any](t, body)
	assert.Equal(t, "a@x.com", me["email"])
	assert.NotContains(t, me, "hashed_password")

	status, body = s.json(t, http.MethodPost, "/register", map[string]string{"email": "a@x.com", "password": "pw", "role": "patient"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.True(t, decode[map[string]any](t, body)["error"].(bool))
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.json(t, http.MethodPost, "/register", map[string]string{"email": "b@x.com", "password": "pw", "role": "patient"})
	assert.Equal(t, fiber.StatusBadRequest, status, "not verified")

	status, _ = s.json(t, http.MethodPost, "/verify-code", map[string]string{"email": "b@x.com", "code": "123456"})
	assert.Equal(t, fiber.StatusBadRequest, status, "no code issued")

	status, _ = s.json(t, http.MethodPost, "/send-verification", map[string]string{"email": database.FixtureEmail})
	assert.Equal(t, fiber.StatusConflict, status, "already registered")

	status, _ = s.form(t, "/token", url.Values{"username": {database.FixtureEmail}, "password": {"wrong"}})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.form(t, "/token", url.Values{"username": {database.FixtureEmail}, "password": {"secret"}})
	assert.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	status, _ = s.do(t, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthMe_RejectsTokenWithoutExpiry(t *testing.T) {
	s := newTestServer(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": database.FixtureEmail,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, _ := s.do(t, req)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAuthMe_InactiveUser(t *testing.T) {
	s := newTestServer(t)
	status, body := s.form(t, "/token", url.Values{"username": {database.FixtureEmail}, "password": {"secret"}})
	require.Equal(t, fiber.StatusOK, status)
	tok := decode[map[string]string](t, body)

	_, err := s.store.Collection(database.Users).UpdateOne(context.Background(),
		database.Filter{"email": database.FixtureEmail}, database.Document{"is_active": false})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok["access_token"])
	status, body = s.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "Inactive user")
}

func TestProfilesAppointmentsAndRatings(t *testing.T) {
	s := newTestServer(t)
	doctorUser := s.register(t, "doc@x.com", "pw", "doctor")
	patientUser := s.register(t, "pat@x.com", "pw", "patient")

	status, _ := s.json(t, http.MethodGet, "/doctors", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body := s.multipart(t, "/complete-profile/"+doctorUser+"?role=doctor", map[string]string{
		"user_name": "Dr. Who", "specialty": "Dermatology", "hospital": "General", "contact": "555",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status, "years_experience missing: "+string(body))

	status, body = s.multipart(t, "/complete-profile/"+doctorUser+"?role=doctor", map[string]string{
		"user_name": "Dr. Who", "specialty": "Dermatology", "hospital": "General", "contact": "555", "years_experience": "7",
	}, &filePart{field: "profile_image", name: "me.png", contentType: "image/png", data: []byte("png")})
	require.Equal(t, fiber.StatusOK, status, string(body))
	doctor := decode[map[string]any](t, body)
	doctorID := doctor["id"].(string)
	assert.Contains(t, doctor["profile_image_url"], "/static/uploads/doctors/")

	status, body = s.multipart(t, "/complete-profile/"+patientUser+"?role=patient", map[string]string{
		"user_name": "Pat", "dob": "1990-01-01", "contact": "555",
	}, nil)
	require.Equal(t, fiber.StatusOK, status, string(body))

	status, _ = s.multipart(t, "/complete-profile/"+patientUser+"?role=nurse", map[string]string{"contact": "555"}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, body = s.json(t, http.MethodGet, "/doctordetails/"+doctorUser, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Dermatology", decode[map[string]any](t, body)["specialty"])

	status, _ = s.json(t, http.MethodGet, "/patientdetails/"+patientUser, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.json(t, http.MethodGet, "/patientdetails/nobody", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = s.json(t, http.MethodGet, "/doctors", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	// Appointments
	status, _ = s.json(t, http.MethodGet, "/appointments/patient/"+patientUser, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.form(t, "/appointments", url.Values{
		"doctor_id": {doctorID}, "patient_id": {patientUser}, "date_time": {"tomorrow"},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.form(t, "/appointments", url.Values{
		"doctor_id": {doctorID}, "patient_id": {patientUser}, "date_time": {"2026-05-01T09:30:00Z"}, "notes": {"mole"},
	})
	require.Equal(t, fiber.StatusCreated, status, string(body))
	appt := decode[map[string]any](t, body)
	apptID := appt["id"].(string)
	assert.Equal(t, "pending", appt["status"])

	status, body = s.json(t, http.MethodGet, "/appointments?doctor_id="+doctorID+"&patient_id="+patientUser, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pending", decode[map[string]string](t, body)["status"])

	status, body = s.json(t, http.MethodGet, "/appointments?doctor_id="+doctorID+"&patient_id=other", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "not_found", decode[map[string]string](t, body)["status"])

	status, body = s.json(t, http.MethodPatch, "/appointments/"+apptID+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, "confirmed", decode[map[string]string](t, body)["status"])

	status, _ = s.json(t, http.MethodPatch, "/appointments/missing/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = s.json(t, http.MethodGet, "/appointments/doctor/"+doctorUser, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	status, body = s.json(t, http.MethodGet, "/appointments/patient/"+patientUser, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	// Ratings
	status, body = s.json(t, http.MethodGet, "/api/ratings/has_rated?appointment_id="+apptID, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "false", string(body))

	status, body = s.json(t, http.MethodPost, "/api/ratings/set_rating", map[string]any{"appointment_id": apptID, "rating": 4.5})
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, "4.5", string(body))

	status, _ = s.json(t, http.MethodPost, "/api/ratings/set_rating", map[string]any{"appointment_id": apptID, "rating": 9})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.json(t, http.MethodGet, "/api/ratings/has_rated?appointment_id="+apptID, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "true", string(body))

	for _, bad := range []string{"NaN", "Inf", "-Inf"} {
		status, _ = s.form(t, "/api/ratings/set_rating", url.Values{"appointment_id": {apptID}, "rating": {bad}})
		assert.Equal(t, fiber.StatusBadRequest, status, bad)
	}

	status, body = s.json(t, http.MethodGet, "/doctordetails/"+doctorUser, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 4.5, decode[map[string]any](t, body)["rating"])

	status, _ = s.json(t, http.MethodGet, "/doctors", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestPredictions(t *testing.T) {
	s := newTestServer(t)

	status, body := s.multipart(t, "/analyze", map[string]string{"user_id": "u1"},
		&filePart{field: "image", name: "lesion.jpg", contentType: "image/jpeg", data: []byte("jpeg bytes")})
	require.Equal(t, fiber.StatusOK, status, string(body))
	pred := decode[map[string]any](t, body)
	id := pred["id"].(string)
	assert.NotEmpty(t, pred["predicted_class"])
	assert.Len(t, pred["all_predictions"], len(classifier.Classes))

	status, _ = s.multipart(t, "/analyze", map[string]string{"user_id": "u1"},
		&filePart{field: "image", name: "notes.txt", contentType: "text/plain", data: []byte("hi")})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.multipart(t, "/analyze", map[string]string{"user_id": "u1"},
		&filePart{field: "image", name: "big.jpg", contentType: "image/jpeg", data: bytes.Repeat([]byte("x"), 1_000_001)})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "File too large")

	status, _ = s.multipart(t, "/analyze", map[string]string{"user_id": "u1"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.json(t, http.MethodGet, "/prediction/"+id, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, pred["predicted_class"], decode[map[string]any](t, body)["predicted_class"])

	status, _ = s.json(t, http.MethodGet, "/prediction/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = s.json(t, http.MethodGet, "/prediction-history?user_id=u1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	status, body = s.json(t, http.MethodGet, "/prediction-history?user_id=nobody", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(body))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	status, body := s.json(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.True(t, decode[map[string]any](t, body)["error"].(bool))
}
