package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/edita-ar/apiserver/internal/logging"
	"github.com/edita-ar/apiserver/internal/metrics"
	"github.com/edita-ar/apiserver/types"
)

// FeedPageSize is the number of projects returned by ListRecent.
const FeedPageSize = 10

const eventPublishTimeout = 5 * time.Second

type ProjectStore interface {
	Create(ctx context.Context, project types.Project) (types.Project, error)
	ListLatest(ctx context.Context, limit int) ([]types.Project, error)
}

// EventPublisher hands a payload to the broker. *mq.MQ satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

type PostAuthor struct {
	Name     string `json:"name" validate:"required"`
	Avatar   string `json:"avatar"`
	Level    string `json:"level"`
	Username string `json:"username"`
}

// ProjectPost is the body of a publish request. Likes and comments sent by
// the client are ignored.
type ProjectPost struct {
	User        PostAuthor `json:"user"`
	Title       string     `json:"title" validate:"required"`
	Content     string     `json:"content" validate:"required"`
	Image       string     `json:"image"`
	ProjectName string     `json:"projectName" validate:"required"`
	Tags        []string   `json:"tags"`
}

// FeedService publishes projects and serves the community feed.
type FeedService struct {
	projects ProjectStore
	events   EventPublisher
	channel  string
	logger   *slog.Logger
}

// NewFeedService builds the feed service. events may be nil, in which case
// no project events are emitted.
func NewFeedService(projects ProjectStore, events EventPublisher, channel string, logger *slog.Logger) *FeedService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FeedService{
		projects: projects,
		events:   events,
		channel:  channel,
		logger:   logger,
	}
}

// Publish stores the post with zero likes and comments. A broker failure
// after the project is stored is logged and does not fail the request.
func (s *FeedService) Publish(ctx context.Context, post ProjectPost) (types.Project, error) {
	post.User.Name = strings.TrimSpace(post.User.Name)
	post.User.Username = strings.TrimSpace(post.User.Username)
	post.Title = strings.TrimSpace(post.Title)
	post.Content = strings.TrimSpace(post.Content)
	post.ProjectName = strings.TrimSpace(post.ProjectName)
	if err := validateRequest(post); err != nil {
		return types.Project{}, err
	}

	project := types.Project{
		Author: types.ProjectAuthor{
			Name:     post.User.Name,
			Avatar:   strings.TrimSpace(post.User.Avatar),
			Level:    strings.TrimSpace(post.User.Level),
			Username: post.User.Username,
		},
		Title:       post.Title,
		Content:     post.Content,
		Image:       strings.TrimSpace(post.Image),
		ProjectName: post.ProjectName,
		Tags:        cleanTags(post.Tags),
	}

	created, err := s.projects.Create(ctx, project)
	if err != nil {
		return types.Project{}, storeError("create project", err)
	}

	s.logger.InfoContext(ctx, "project published", "project_id", created.ID, "project_name", created.ProjectName)
	s.publishEvent(ctx, created)
	return created, nil
}

// ListRecent returns the newest FeedPageSize projects.
func (s *FeedService) ListRecent(ctx context.Context) ([]types.Project, error) {
	projects, err := s.projects.ListLatest(ctx, FeedPageSize)
	if err != nil {
		return nil, storeError("list projects", err)
	}
	return projects, nil
}

func (s *FeedService) publishEvent(ctx context.Context, project types.Project) {
	if s.events == nil || s.channel == "" {
		return
	}

	payload, err := json.Marshal(types.ProjectPublishedEvent{
		ProjectID:   project.ID,
		Title:       project.Title,
		ProjectName: project.ProjectName,
		Author:      project.Author,
		PublishedAt: project.CreatedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "encode project event", "project_id", project.ID, "error", err)
		metrics.EventsPublished.WithLabelValues(s.channel, metrics.OutcomeError).Inc()
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	attrs := map[string]string{
		"type":       "project.published",
		"project_id": strconv.FormatInt(project.ID, 10),
	}
	messageID, err := s.events.Publish(pubCtx, s.channel, payload, attrs)
	if err != nil {
		s.logger.WarnContext(ctx, "publish project event failed", "project_id", project.ID, "channel", s.channel, "error", err)
		metrics.EventsPublished.WithLabelValues(s.channel, metrics.OutcomeError).Inc()
		return
	}
	metrics.EventsPublished.WithLabelValues(s.channel, metrics.OutcomeOK).Inc()
	s.logger.DebugContext(ctx, "project event published", "project_id", project.ID, "message_id", messageID)
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}
