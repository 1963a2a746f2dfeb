package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/models"
)

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Setup installs a JSON logger on stdout as the slog default.
func Setup(level string) {
	slog.SetDefault(slog.New(newJSONHandler(os.Stdout, ParseLevel(level))))
}

// EnablePostgres migrates system_logs and makes the default logger copy
// ERROR+ records into it. Callers must Stop the returned handler on shutdown.
func EnablePostgres(db *gorm.DB, level string) (*PGHandler, error) {
	if err := db.AutoMigrate(&models.SystemLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate system_logs: %w", err)
	}
	pg := NewPGHandler(db)
	slog.SetDefault(slog.New(NewMultiHandler(
		newJSONHandler(os.Stdout, ParseLevel(level)),
		pg,
	)))
	return pg, nil
}
