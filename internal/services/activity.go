package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edita-ar/apiserver/internal/logging"
	"github.com/edita-ar/apiserver/internal/metrics"
	"github.com/edita-ar/apiserver/internal/mq"
	"github.com/edita-ar/apiserver/internal/store"
	"github.com/edita-ar/apiserver/types"
)

type ActivityStore interface {
	RecordProjectPublished(ctx context.Context, username string, activity types.Activity) error
}

// ActivityRecorder consumes project events and updates the author's profile.
type ActivityRecorder struct {
	users  ActivityStore
	logger *slog.Logger
}

func NewActivityRecorder(users ActivityStore, logger *slog.Logger) *ActivityRecorder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ActivityRecorder{users: users, logger: logger}
}

// Handle is an mq.Handler. Returning an error asks the broker to redeliver,
// so only store failures are returned; bad payloads and unknown authors are
// acknowledged and skipped.
func (r *ActivityRecorder) Handle(ctx context.Context, msg mq.Message) error {
	var event types.ProjectPublishedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		r.logger.WarnContext(ctx, "dropping malformed project event", "message_id", msg.ID, "error", err)
		metrics.EventsHandled.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	}

	username := strings.TrimSpace(event.Author.Username)
	if username == "" {
		metrics.EventsHandled.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	}

	activity := types.Activity{
		Type:      types.ActivityProjectPublished,
		ProjectID: event.ProjectID,
		Title:     event.Title,
		At:        event.PublishedAt,
	}
	err := r.users.RecordProjectPublished(ctx, username, activity)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.logger.InfoContext(ctx, "project author has no account", "username", username, "project_id", event.ProjectID)
		metrics.EventsHandled.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	case err != nil:
		metrics.EventsHandled.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("record activity for %s: %w", username, err)
	}

	metrics.EventsHandled.WithLabelValues(metrics.OutcomeOK).Inc()
	r.logger.DebugContext(ctx, "activity recorded", "username", username, "project_id", event.ProjectID)
	return nil
}
