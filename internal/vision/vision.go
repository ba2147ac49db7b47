// Package vision adapts external image-understanding services to the
// operations the scanning and AR flows need.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/edita-ar/apiserver/config"
	"github.com/edita-ar/apiserver/types"
)

// Image is a decoded image with its sniffed MIME type.
type Image struct {
	Data     []byte
	MimeType string
}

// DataURL renders the image as a base64 data URL.
func (img Image) DataURL() string {
	return "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Collaborator is implemented by every vision backend.
type Collaborator interface {
	Name() string
	// Detect lists the significant items visible in the image.
	Detect(ctx context.Context, img Image) ([]string, error)
	// AnalyzeStep judges whether the target step has been completed.
	AnalyzeStep(ctx context.Context, img Image, target string) (types.StepFeedback, error)
}

// New builds the collaborator selected by cfg.Backend. It returns nil when
// no backend is configured.
func New(ctx context.Context, cfg config.VisionConfig) (Collaborator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.Gemini, &http.Client{Timeout: cfg.Timeout})
	case "moondream":
		return NewMoondreamClient(cfg.Moondream, &http.Client{Timeout: cfg.Timeout})
	default:
		return nil, fmt.Errorf("unsupported vision backend %q", cfg.Backend)
	}
}
