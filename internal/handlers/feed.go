package handlers

import (
	"log/slog"
	"net/http"

	"github.com/edita-ar/apiserver/internal/services"
	"github.com/edita-ar/apiserver/types"
	"github.com/go-chi/chi/v5"
)

type FeedHandler struct {
	feed   *services.FeedService
	logger *slog.Logger
}

func NewFeedHandler(feed *services.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logger}
}

// FeedRouter registers the community feed routes. /publish and POST
// /projects are the same operation.
func FeedRouter(r chi.Router, feed *services.FeedService, logger *slog.Logger) {
	handler := NewFeedHandler(feed, logger)

	r.Post("/publish", handler.Publish)
	r.Post("/projects", handler.Publish)
	r.Get("/projects", handler.ListProjects)
}

type ProjectsResponse struct {
	Projects []types.Project `json:"projects"`
}

func (h *FeedHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var post services.ProjectPost
	if err := decodeJSON(w, r, maxJSONBody, &post); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if _, err := h.feed.Publish(r.Context(), post); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Project added"})
}

func (h *FeedHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.feed.ListRecent(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
}
