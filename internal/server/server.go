package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/edita-ar/apiserver/config"
	"github.com/edita-ar/apiserver/internal/db"
	"github.com/edita-ar/apiserver/internal/handlers"
	"github.com/edita-ar/apiserver/internal/metrics"
	"github.com/edita-ar/apiserver/internal/mq"
	"github.com/edita-ar/apiserver/internal/ratelimit"
	"github.com/edita-ar/apiserver/internal/services"
	"github.com/edita-ar/apiserver/internal/storage"
	"github.com/edita-ar/apiserver/internal/store"
	"github.com/edita-ar/apiserver/internal/vision"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP server, router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// closed in reverse order on shutdown
	closers []io.Closer
}

// Dependencies are the services and collaborators the router serves.
type Dependencies struct {
	Logger             *slog.Logger
	DB                 handlers.Pinger
	Accounts           *services.AccountService
	Feed               *services.FeedService
	Images             *services.ImageService
	Analysis           *services.AnalysisService
	Limiter            *ratelimit.Limiter
	CORSAllowedOrigins []string
}

// New connects every configured backend and builds the HTTP server.
// Optional backends (storage, broker, vision, redis) stay disabled when
// their config is empty.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{logger: logger}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, dbConn)

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(cfg.Database.URL()); err != nil {
			s.closeAll()
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	var objects services.ObjectStore
	objectStorage, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("storage: %w", err)
	}
	if objectStorage != nil {
		objects = objectStorage
		s.closers = append(s.closers, objectStorage)
		logger.Info("image storage enabled", "backend", cfg.Storage.Backend, "bucket", objectStorage.Bucket())
	}

	var events services.EventPublisher
	queue, err := mq.New(ctx, cfg.MQ)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("mq: %w", err)
	}
	if queue != nil {
		events = queue
		s.closers = append(s.closers, queue)
		logger.Info("project events enabled", "backend", cfg.MQ.Backend, "channel", cfg.MQ.ProjectsChannel)
	}

	collaborator, err := vision.New(ctx, cfg.Vision)
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("vision: %w", err)
	}
	if collaborator != nil {
		logger.Info("vision enabled", "backend", collaborator.Name())
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.URL != "" {
		l, rdb, err := ratelimit.NewFromURL(cfg.Redis.URL, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		if err != nil {
			s.closeAll()
			return nil, err
		}
		limiter = l
		s.closers = append(s.closers, rdb)
		logger.Info("vision rate limit enabled", "limit", cfg.Redis.RateLimit, "window", cfg.Redis.RateWindow)
	}

	userRepo := store.NewUserRepository(dbConn, cfg.Database.QueryTimeout)
	projectRepo := store.NewProjectRepository(dbConn, cfg.Database.QueryTimeout)

	s.router = NewRouter(Dependencies{
		Logger:             logger,
		DB:                 dbConn,
		Accounts:           services.NewAccountService(userRepo, logger),
		Feed:               services.NewFeedService(projectRepo, events, cfg.MQ.ProjectsChannel, logger),
		Images:             services.NewImageService(objects, cfg.PublicBaseURL, logger),
		Analysis:           services.NewAnalysisService(collaborator, cfg.Vision.Timeout, logger),
		Limiter:            limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(deps Dependencies) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(deps.Logger),
		middleware.Recoverer,
		middleware.StripSlashes,
		cors.Handler(cors.Options{
			AllowedOrigins: deps.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
		middleware.Timeout(90*time.Second),
	)

	router.Get("/healthz", handlers.Healthz(deps.DB))
	router.Handle("/metrics", metrics.Handler())

	handlers.AccountRouter(router, deps.Accounts, deps.Logger)
	handlers.FeedRouter(router, deps.Feed, deps.Logger)
	handlers.VisionRouter(router, deps.Analysis, deps.Limiter, deps.Logger)
	router.Route("/images", func(r chi.Router) {
		handlers.ImageRouter(r, deps.Images, deps.Logger)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker, storage,
// redis and database in reverse order of creation.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeAll()
	return err
}

func (s *Server) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("close resource", "error", err)
		}
	}
	s.closers = nil
}
