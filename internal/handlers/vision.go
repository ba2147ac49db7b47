package handlers

import (
	"log/slog"
	"net/http"

	"github.com/edita-ar/apiserver/internal/ratelimit"
	"github.com/edita-ar/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// Base64 inflates by 4/3, so this fits a MaxImageBytes image plus the target.
const maxAnalyzeBody = services.MaxImageBytes/3*4 + 1<<20

type VisionHandler struct {
	analysis *services.AnalysisService
	logger   *slog.Logger
}

func NewVisionHandler(analysis *services.AnalysisService, logger *slog.Logger) *VisionHandler {
	return &VisionHandler{analysis: analysis, logger: logger}
}

// VisionRouter registers the scanning and step-analysis routes, rate
// limited per client when limiter is non-nil.
func VisionRouter(r chi.Router, analysis *services.AnalysisService, limiter *ratelimit.Limiter, logger *slog.Logger) {
	handler := NewVisionHandler(analysis, logger)

	r.With(RateLimit(limiter, "detect", logger)).Post("/detect", handler.Detect)
	r.With(RateLimit(limiter, "analyze", logger)).Post("/analyze", handler.Analyze)
}

type DetectResponse struct {
	Items []string `json:"items"`
}

func (h *VisionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	data, err := readUploadedFile(w, r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, err := h.analysis.Detect(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, DetectResponse{Items: items})
}

func (h *VisionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req services.AnalyzeRequest
	if err := decodeJSON(w, r, maxAnalyzeBody, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	feedback, err := h.analysis.AnalyzeStep(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, feedback)
}
