package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ImageStore persists uploaded image bytes and returns a slash-separated
// reference relative to the store root, which is served under /static.
type ImageStore interface {
	Save(ctx context.Context, folder, name string, data []byte) (string, error)
}

// DiskImageStore writes under a root directory.
type DiskImageStore struct {
	root string
	now  func() time.Time
}

func NewDiskImageStore(root string) *DiskImageStore {
	return &DiskImageStore{root: root, now: time.Now}
}

func (s *DiskImageStore) Root() string { return s.root }

// Save writes data to <root>/<folder>/<unix-nanos>_<name> and returns
// <folder>/<unix-nanos>_<name>.
func (s *DiskImageStore) Save(_ context.Context, folder, name string, data []byte) (string, error) {
	rel := filepath.Join(filepath.Clean("/"+folder), fmt.Sprintf("%d_%s", s.now().UnixNano(), sanitizeFilename(name)))
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")

	path := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return rel, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." || name == "_" {
		return "upload"
	}
	return name
}
