package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/edita-ar/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

const (
	formFieldFile      = "file"
	maxMultipartMemory = 32 << 20
	// multipart framing on top of the image itself
	multipartOverhead = 1 << 20
)

type ImageHandler struct {
	images *services.ImageService
	logger *slog.Logger
}

func NewImageHandler(images *services.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger}
}

// ImageRouter registers image upload and download routes.
func ImageRouter(r chi.Router, images *services.ImageService, logger *slog.Logger) {
	handler := NewImageHandler(images, logger)

	r.Post("/", handler.Upload)
	r.Get("/{key}", handler.Get)
}

func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, err := readUploadedFile(w, r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	image, err := h.images.Upload(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, image)
}

func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.images.Open(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "stream image", "error", err)
	}
}

// readUploadedFile returns the bytes of the multipart "file" field, capped at
// services.MaxImageBytes.
func readUploadedFile(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &services.ValidationError{Field: formFieldFile, Message: fmt.Sprintf("must be at most %d bytes", services.MaxImageBytes)}
		}
		return nil, &services.ValidationError{Message: "request must be multipart/form-data"}
	}

	file, _, err := r.FormFile(formFieldFile)
	if err != nil {
		return nil, &services.ValidationError{Field: formFieldFile, Message: "is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
