package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edita-ar/apiserver/internal/logging"
	"github.com/edita-ar/apiserver/internal/metrics"
	"github.com/edita-ar/apiserver/internal/vision"
	"github.com/edita-ar/apiserver/types"
)

type AnalyzeRequest struct {
	Image  string `json:"image" validate:"required"`
	Target string `json:"target" validate:"required,max=500"`
}

// AnalysisService fronts the configured vision collaborator.
type AnalysisService struct {
	collaborator vision.Collaborator
	timeout      time.Duration
	logger       *slog.Logger
}

// NewAnalysisService builds the analysis service. A nil collaborator makes
// every call fail with ErrVisionNotConfigured.
func NewAnalysisService(collaborator vision.Collaborator, timeout time.Duration, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AnalysisService{collaborator: collaborator, timeout: timeout, logger: logger}
}

// Detect lists the items visible in the raw image bytes.
func (s *AnalysisService) Detect(ctx context.Context, data []byte) ([]string, error) {
	if s.collaborator == nil {
		return nil, ErrVisionNotConfigured
	}
	contentType, err := sniffImage(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, err := s.collaborator.Detect(ctx, vision.Image{Data: data, MimeType: contentType})
	if err != nil {
		return nil, s.visionError(ctx, "detect", err)
	}
	s.observe("detect", metrics.OutcomeOK)
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// AnalyzeStep judges whether the step named by req.Target is finished in the
// base64 or data URL encoded image.
func (s *AnalysisService) AnalyzeStep(ctx context.Context, req AnalyzeRequest) (types.StepFeedback, error) {
	if s.collaborator == nil {
		return types.StepFeedback{}, ErrVisionNotConfigured
	}
	req.Target = strings.TrimSpace(req.Target)
	if err := validateRequest(req); err != nil {
		return types.StepFeedback{}, err
	}
	img, err := DecodeImage(req.Image)
	if err != nil {
		return types.StepFeedback{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	feedback, err := s.collaborator.AnalyzeStep(ctx, img, req.Target)
	if err != nil {
		return types.StepFeedback{}, s.visionError(ctx, "analyze", err)
	}
	s.observe("analyze", metrics.OutcomeOK)
	feedback.Target = req.Target
	return feedback, nil
}

// DecodeImage accepts plain base64 (padded or not) or a data URL and returns
// the decoded image with its sniffed type.
func DecodeImage(encoded string) (vision.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.Index(encoded, ",")
		if comma < 0 || !strings.HasSuffix(encoded[:comma], ";base64") {
			return vision.Image{}, &ValidationError{Field: "image", Message: "must be a base64 data URL"}
		}
		encoded = encoded[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return vision.Image{}, &ValidationError{Field: "image", Message: "is not valid base64"}
	}

	contentType, err := sniffImage(data)
	if err != nil {
		return vision.Image{}, err
	}
	return vision.Image{Data: data, MimeType: contentType}, nil
}

func (s *AnalysisService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *AnalysisService) visionError(ctx context.Context, op string, err error) error {
	s.observe(op, metrics.OutcomeError)
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		s.logger.WarnContext(ctx, "vision request timed out", "backend", s.collaborator.Name(), "operation", op)
	} else {
		s.logger.ErrorContext(ctx, "vision request failed", "backend", s.collaborator.Name(), "operation", op, "error", err)
	}
	return fmt.Errorf("%w: %s: %w", ErrVisionService, op, err)
}

func (s *AnalysisService) observe(op, outcome string) {
	metrics.VisionRequests.WithLabelValues(s.collaborator.Name(), op, outcome).Inc()
}
