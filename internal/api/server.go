// Package api provides the HTTP API server and handlers for the page widgets.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pagewidgets/pagewidgets-server/internal/booksearch"
	"github.com/pagewidgets/pagewidgets-server/internal/config"
	domainerrors "github.com/pagewidgets/pagewidgets-server/internal/errors"
	"github.com/pagewidgets/pagewidgets-server/internal/http/response"
	"github.com/pagewidgets/pagewidgets-server/internal/kb"
	"github.com/pagewidgets/pagewidgets-server/internal/validation"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Services groups the collaborators the handlers call into.
type Services struct {
	Search booksearch.Searcher
	KB     *kb.Gateway
	Images http.Handler // cover relay, mounted under the image proxy prefix
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg       *config.Config
	services  *Services
	router    *chi.Mux
	api       huma.API
	validator *validation.Validator
	limiter   *RateLimiter
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, services *Services, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		services:  services,
		router:    chi.NewRouter(),
		validator: validation.New(),
		logger:    logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Page Widgets API", Version)
	humaConfig.Info.Description = "Book search and daily to-do widgets backed by a Notion knowledge base."
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(withSecurityHeaders)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(s.cfg.Server.RateLimit, time.Minute, max(s.cfg.Server.RateLimit/4, 10))
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
	s.router.Use(withBaseURL(s.cfg.Server.PublicBaseURL))
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerDatabaseRoutes()
	s.registerSetupRoutes()
	s.registerTodoRoutes()
	s.registerWidgetRoutes()

	if s.services.Images != nil {
		s.router.Handle(s.cfg.ImageProxy.PathPrefix+"/*", s.services.Images)
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, domainerrors.New(domainerrors.CodeNotFound, "Not found"), s.logger)
	})
}
