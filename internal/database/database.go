package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/config"
)

// Open builds the store selected by cfg.StoreBackend. With StoreFallback set,
// an unreachable persistent backend degrades to a MemoryStore.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.StoreBackend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "mongo":
		store, err = ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.StoreConnectTimeout)
	case "postgres":
		store, err = ConnectPostgres(ctx, cfg.DSN(), cfg.StoreConnectTimeout)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err == nil {
		return store, nil
	}
	if !cfg.StoreFallback {
		return nil, err
	}
	slog.Warn("persistent store unavailable, using in-memory store", "backend", cfg.StoreBackend, "error", err)
	return NewMemoryStore(), nil
}

// FixtureEmail is the doctor account seeded into fresh stores; its password is "secret".
const FixtureEmail = "test@example.com"

const fixturePasswordHash = "$2b$12$EixZaYVK1fsbw1ZfbX3OXePaWxn96p36WQoeG6Lruj3vjPGga31lW"

// Seed inserts fixture records the rest of the system expects. It is a no-op
// when the fixtures already exist.
func Seed(ctx context.Context, store Store) error {
	users := store.Collection(Users)
	_, err := users.FindOne(ctx, Filter{"email": FixtureEmail})
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoDocuments) {
		return fmt.Errorf("failed to check fixtures: %w", err)
	}
	_, err = users.InsertOne(ctx, Document{
		"email":           FixtureEmail,
		"hashed_password": fixturePasswordHash,
		"role":            "doctor",
		"is_active":       true,
		"created_at":      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to seed fixtures: %w", err)
	}
	slog.Info("fixture data seeded", "store", store.Name())
	return nil
}
