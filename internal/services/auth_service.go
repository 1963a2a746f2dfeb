package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
)

type AuthService struct {
	users     database.Collection
	hasher    *PasswordHasher
	tokens    *TokenService
	codes     *VerificationService
	mailer    Mailer
	accessTTL time.Duration

	// registerMu serialises the exists-then-insert check for stores
	// without a unique index.
	registerMu sync.Mutex
}

func NewAuthService(
	store database.Store,
	hasher *PasswordHasher,
	tokens *TokenService,
	codes *VerificationService,
	mailer Mailer,
	accessTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:     store.Collection(database.Users),
		hasher:    hasher,
		tokens:    tokens,
		codes:     codes,
		mailer:    mailer,
		accessTTL: accessTTL,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", validationError("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", validationError("invalid email address")
	}
	return email, nil
}

// SendVerification emails a fresh code to an address that is not yet registered.
func (s *AuthService) SendVerification(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	code, err := s.codes.Generate(ctx, email)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, email, verificationSubject, verificationBody(code)); err != nil {
		slog.Error("verification email failed", "email", email, "error", err)
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	slog.Info("verification code sent", "email", email)
	return nil
}

func (s *AuthService) VerifyCode(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	return s.codes.Verify(ctx, email, strings.TrimSpace(code))
}

// Register creates the account for a verified email and consumes its code.
// An already registered email is a conflict even after its code is gone.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	verified, err := s.codes.IsVerified(ctx, email)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrEmailNotVerified
	}
	if !models.ValidRole(req.Role) {
		return nil, validationError("invalid role")
	}

	user, err := s.CreateUser(ctx, email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.codes.Consume(ctx, email); err != nil {
		slog.Warn("failed to consume verification code", "email", email, "error", err)
	}
	return user, nil
}

// CreateUser inserts an active user with a hashed password. It fails with
// ErrEmailTaken when the email already exists.
func (s *AuthService) CreateUser(ctx context.Context, email, password, role string) (*models.User, error) {
	if password == "" {
		return nil, validationError("password is required")
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	if _, err := s.users.FindOne(ctx, database.Filter{"email": email}); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:          email,
		HashedPassword: hash,
		Role:           role,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	id, err := s.users.InsertOne(ctx, user.Document())
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, email string) (*models.User, error) {
	doc, err := s.users.FindOne(ctx, database.Filter{"email": email})
	if errors.Is(err, database.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.UserFromDocument(doc), nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.users.FindOne(ctx, database.Filter{database.IDField: id})
	if errors.Is(err, database.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.UserFromDocument(doc), nil
}

// Login checks the password and issues an access token with the configured ttl.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	user, err := s.GetUser(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrIncorrectLogin
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, ErrIncorrectLogin
	}

	token, err := s.tokens.Issue(user.Email, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Email:       user.Email,
		Role:        user.Role,
		UserID:      user.ID,
	}, nil
}

// ActiveUser resolves the subject of an already verified token. A missing
// user is ErrInvalidCredentials; a deactivated one is ErrInactiveUser.
func (s *AuthService) ActiveUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.GetUser(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}
