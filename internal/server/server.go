package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/digital-blueprint/apiserver/config"
	"github.com/digital-blueprint/apiserver/internal/catalog"
	"github.com/digital-blueprint/apiserver/internal/db"
	"github.com/digital-blueprint/apiserver/internal/events"
	"github.com/digital-blueprint/apiserver/internal/handlers"
	"github.com/digital-blueprint/apiserver/internal/lock"
	"github.com/digital-blueprint/apiserver/internal/mq"
	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/services"
	"github.com/digital-blueprint/apiserver/internal/storage"
	"github.com/digital-blueprint/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	components *Components
}

// Components holds the wired services shared by the HTTP server and the
// CLI commands.
type Components struct {
	Catalog  *services.CatalogService
	Progress *services.ProgressService
	Reports  *services.ReportService
	Users    *services.UserService

	// Queue is nil when no broker is configured.
	Queue *mq.MQ

	closers []func() error
}

// Build wires stores, services and optional infrastructure from cfg.
func Build(ctx context.Context, cfg config.Config) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	cat, err := catalog.LoadFile(cfg.CatalogFile, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var (
		catalogRepo  services.CatalogRepository
		progressRepo services.ProgressRepository
		userRepo     services.UserRepository
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		catalogRepo = store.NewCatalogMemory(cat)
		progressRepo = store.NewProgressMemory()
		userRepo = store.NewUserMemory()
	case config.BackendPostgres:
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, dbConn.Close)

		sections := store.NewSectionRepository(dbConn)
		if err := sections.Seed(ctx, cat); err != nil {
			return nil, fmt.Errorf("seed catalog (run `migrate up` first?): %w", err)
		}
		catalogRepo = sections
		progressRepo = store.NewProgressRepository(dbConn)
		userRepo = store.NewUserRepository(dbConn)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		redisLock, err := lock.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, redisLock.Close)
		locker = redisLock
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	c.Queue, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	if c.Queue != nil {
		c.closers = append(c.closers, c.Queue.Close)
		publisher = events.NewPublisher(c.Queue, cfg.MQ.Channel)
	}

	location, err := time.LoadLocation(cfg.Report.Location)
	if err != nil {
		return nil, fmt.Errorf("report location: %w", err)
	}

	var printer report.PDFPrinter
	if chrome, err := report.NewChromePrinter(); err != nil {
		log.Printf("pdf reports disabled: %v", err)
	} else {
		printer = chrome
	}

	c.Catalog = services.NewCatalogService(catalogRepo)
	c.Progress = services.NewProgressService(progressRepo, catalogRepo, locker, publisher)
	c.Reports = services.NewReportService(catalogRepo, progressRepo, report.NewRenderer(printer), objects, location)
	c.Users = services.NewUserService(userRepo)

	ok = true
	return c, nil
}

// Close releases connections in reverse order of acquisition.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// NewRouter builds the HTTP routes. The API is served at the root and again
// under /api.
func NewRouter(c *Components, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)

	routes := func(r chi.Router) {
		r.Route("/sections", func(r chi.Router) {
			handlers.CatalogRouter(r, c.Catalog)
		})
		r.Route("/users/{userId}/progress", func(r chi.Router) {
			handlers.ProgressRouter(r, c.Progress, c.Reports, jwtSecret)
		})
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, c.Users, jwtSecret)
		})
	}
	routes(router)
	router.Route("/api", routes)

	return router
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if cfg.StoreBackend != config.BackendMemory {
			return nil, errors.New("JWT_SECRET is required")
		}
		log.Printf("JWT_SECRET not set; tokens will not survive a restart")
		jwtSecret = uuid.NewString()
	}

	components, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router := NewRouter(components, jwtSecret)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		components: components,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.components.Close())
}
