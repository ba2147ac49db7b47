package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"

	"github.com/edita-ar/apiserver/internal/logging"
	"github.com/edita-ar/apiserver/internal/storage"
	"github.com/edita-ar/apiserver/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageBytes caps uploads and inline images sent for analysis.
const MaxImageBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var imageKeyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|png|webp|gif)$`)

type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageService stores project and profile images in object storage.
type ImageService struct {
	objects ObjectStore
	baseURL string
	logger  *slog.Logger
}

// NewImageService builds the image service. A nil objects disables uploads.
func NewImageService(objects ObjectStore, publicBaseURL string, logger *slog.Logger) *ImageService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ImageService{objects: objects, baseURL: publicBaseURL, logger: logger}
}

// Upload sniffs the content type, stores the image under a random key and
// returns its public URL.
func (s *ImageService) Upload(ctx context.Context, data []byte) (types.ImageObject, error) {
	if s.objects == nil {
		return types.ImageObject{}, ErrStorageNotConfigured
	}

	contentType, err := sniffImage(data)
	if err != nil {
		return types.ImageObject{}, err
	}

	key := uuid.NewString() + imageExtensions[contentType]
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.ImageObject{}, fmt.Errorf("store image: %w", err)
	}

	s.logger.InfoContext(ctx, "image uploaded", "key", key, "content_type", contentType, "size", len(data))
	return types.ImageObject{
		Key:         key,
		URL:         s.baseURL + "/images/" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Open returns the stored image and its content type. Keys that could not
// have been issued by Upload are reported as not found without a lookup.
func (s *ImageService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if s.objects == nil {
		return nil, "", ErrStorageNotConfigured
	}
	if !imageKeyPattern.MatchString(key) {
		return nil, "", ErrImageNotFound
	}

	rc, err := s.objects.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrImageNotFound
		}
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	return rc, contentTypeForExt(path.Ext(key)), nil
}

// sniffImage returns the detected MIME type when data is a supported image.
func sniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Field: "image", Message: "is required"}
	}
	if len(data) > MaxImageBytes {
		return "", &ValidationError{Field: "image", Message: fmt.Sprintf("must be at most %d bytes", MaxImageBytes)}
	}

	detected := mimetype.Detect(data).String()
	if _, ok := imageExtensions[detected]; !ok {
		return "", &ValidationError{Field: "image", Message: fmt.Sprintf("has unsupported type %s", detected)}
	}
	return detected, nil
}

func contentTypeForExt(ext string) string {
	for contentType, e := range imageExtensions {
		if e == ext {
			return contentType
		}
	}
	return "application/octet-stream"
}
