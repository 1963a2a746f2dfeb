package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/middleware"
)

// Handlers groups everything Setup mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Profile     *handlers.ProfileHandler
	Appointment *handlers.AppointmentHandler
	Prediction  *handlers.PredictionHandler
	Health      *handlers.HealthHandler
	Users       middleware.UserResolver
}

func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	app.Static("/static", cfg.UploadDir)
	app.Get("/", h.Health.Root)

	api := app.Group("/api")
	api.Use(rateLimit(60))
	api.Get("/health", h.Health.Check)

	// Ratings
	api.Post("/ratings/set_rating", h.Appointment.SetRating)
	api.Get("/ratings/has_rated", h.Appointment.HasRated)

	// Auth: 10 req/min per IP
	authLimit := rateLimit(10)
	app.Post("/send-verification", authLimit, h.Auth.SendVerification)
	app.Post("/verify-code", authLimit, h.Auth.VerifyCode)
	app.Post("/register", authLimit, h.Auth.Register)
	app.Post("/token", authLimit, h.Auth.Login)
	app.Get("/auth/me", middleware.JWTProtected(cfg), middleware.ActiveUser(h.Users), h.Auth.Me)

	// Profiles
	app.Post("/complete-profile/:user_id", h.Profile.Complete)
	app.Get("/doctordetails/:user_id", h.Profile.GetDoctor)
	app.Get("/patientdetails/:user_id", h.Profile.GetPatient)
	app.Get("/doctors", h.Profile.ListDoctors)

	// Appointments
	app.Post("/appointments", h.Appointment.Create)
	app.Get("/appointments", h.Appointment.Status)
	app.Patch("/appointments/:id/status", h.Appointment.UpdateStatus)
	app.Get("/appointments/doctor/:user_id", h.Appointment.ForDoctor)
	app.Get("/appointments/patient/:patient_id", h.Appointment.ForPatient)

	// Predictions
	app.Post("/analyze", rateLimit(30), h.Prediction.Analyze)
	app.Get("/prediction-history", h.Prediction.History)
	app.Get("/prediction/:id", h.Prediction.Get)
}
