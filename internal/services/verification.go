package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// DefaultCodeTTL is how long an emailed verification code stays valid.
const DefaultCodeTTL = 10 * time.Minute

var errNoCode = errors.New("no verification code")

// CodeRecord is the pending verification state for one email.
type CodeRecord struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
}

// CodeStore persists verification records keyed by email. Get returns
// errNoCode when nothing is stored.
type CodeStore interface {
	Save(ctx context.Context, email string, rec CodeRecord) error
	Get(ctx context.Context, email string) (CodeRecord, error)
	MarkVerified(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}

// VerificationService generates and checks one-time email codes.
type VerificationService struct {
	store CodeStore
	ttl   time.Duration
	now   func() time.Time
}

func NewVerificationService(store CodeStore, ttl time.Duration) *VerificationService {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &VerificationService{store: store, ttl: ttl, now: time.Now}
}

// Generate replaces any previous code for email with a fresh 6-digit one.
func (s *VerificationService) Generate(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)
	rec := CodeRecord{Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Save(ctx, email, rec); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}
	return code, nil
}

// Check succeeds only for the latest code of email before it expires.
func (s *VerificationService) Check(ctx context.Context, email, code string) error {
	rec, err := s.store.Get(ctx, email)
	if errors.Is(err, errNoCode) {
		return ErrCodeExpired
	}
	if err != nil {
		return err
	}
	if !s.now().Before(rec.ExpiresAt) {
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return ErrInvalidCode
	}
	return nil
}

func (s *VerificationService) MarkVerified(ctx context.Context, email string) error {
	err := s.store.MarkVerified(ctx, email)
	if errors.Is(err, errNoCode) {
		return ErrCodeExpired
	}
	return err
}

// Verify checks code and flags email as verified.
func (s *VerificationService) Verify(ctx context.Context, email, code string) error {
	if err := s.Check(ctx, email, code); err != nil {
		return err
	}
	return s.MarkVerified(ctx, email)
}

// IsVerified reports whether email holds an unexpired, verified record.
func (s *VerificationService) IsVerified(ctx context.Context, email string) (bool, error) {
	rec, err := s.store.Get(ctx, email)
	if errors.Is(err, errNoCode) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Verified && s.now().Before(rec.ExpiresAt), nil
}

// Consume drops the record once registration has used it.
func (s *VerificationService) Consume(ctx context.Context, email string) error {
	return s.store.Delete(ctx, email)
}

// MemoryCodeStore is the process-local verification table. It is owned by
// whoever constructs it; nothing survives a restart.
type MemoryCodeStore struct {
	mu      sync.Mutex
	records map[string]CodeRecord
	now     func() time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{records: make(map[string]CodeRecord), now: time.Now}
}

func (m *MemoryCodeStore) Save(_ context.Context, email string, rec CodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, r := range m.records {
		if !now.Before(r.ExpiresAt) {
			delete(m.records, k)
		}
	}
	m.records[email] = rec
	return nil
}

func (m *MemoryCodeStore) Get(_ context.Context, email string) (CodeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return CodeRecord{}, errNoCode
	}
	return rec, nil
}

func (m *MemoryCodeStore) MarkVerified(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return errNoCode
	}
	rec.Verified = true
	m.records[email] = rec
	return nil
}

func (m *MemoryCodeStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, email)
	return nil
}

// Len reports how many records are held.
func (m *MemoryCodeStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
