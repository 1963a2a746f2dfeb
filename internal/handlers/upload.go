package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/services"
)

var errUploadTooLarge = errors.New("file too large")

// readUpload loads the named multipart file. It returns nil, nil when the
// field is absent.
func readUpload(c *fiber.Ctx, field string, maxBytes int64) (*services.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	if fh.Size > maxBytes {
		return nil, errUploadTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, errUploadTooLarge
	}
	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

// publicURL turns an image store reference into an absolute URL under /static.
func publicURL(c *fiber.Ctx, ref string) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	return c.BaseURL() + "/static/" + strings.TrimPrefix(ref, "/")
}

func megabytes(n int64) int64 {
	return n / 1_000_000
}
