package web

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/worktime/internal/analytics"
	"github.com/goodtune/worktime/internal/config"
	"github.com/goodtune/worktime/internal/ledger"
	"github.com/goodtune/worktime/internal/mode"
	"github.com/goodtune/worktime/internal/storage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server serves the tracking page and its form endpoints.
type Server struct {
	config    *config.Config
	store     storage.Store
	ledger    *ledger.Ledger
	engine    *analytics.Engine
	registry  *mode.Registry
	identity  *Identity
	server    *http.Server
	router    *mux.Router
	listener  net.Listener
	templates *template.Template
	logger    zerolog.Logger
}

// NewServer creates the web server.
func NewServer(cfg *config.Config, store storage.Store, led *ledger.Ledger, engine *analytics.Engine, registry *mode.Registry, logger zerolog.Logger) (*Server, error) {
	ttl, err := time.ParseDuration(cfg.Web.SessionTTL)
	if err != nil {
		ttl = DefaultSessionTTL
	}

	identity, err := NewIdentity(cfg.Web.CookieName, cfg.Web.CookieSecret, ttl, logger)
	if err != nil {
		return nil, fmt.Errorf("create identity service: %w", err)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		config:    cfg,
		store:     store,
		ledger:    led,
		engine:    engine,
		registry:  registry,
		identity:  identity,
		router:    mux.NewRouter(),
		templates: tmpl,
		logger:    logger.With().Str("component", "web").Logger(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.identity.Middleware)

	s.router.HandleFunc("/", s.handleMain)
	s.router.HandleFunc("/switch", s.handleSwitch)
	s.router.HandleFunc("/adjust", s.handleAdjust)
	s.router.HandleFunc("/clear", s.handleClear)
	s.router.HandleFunc("/switchera", s.handleSwitchEra)
	s.router.HandleFunc("/health", s.handleHealth)
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-bound listener, e.g. from socket activation.
func (s *Server) SetListener(l net.Listener) {
	s.listener = l
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting web server")

	go func() {
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Web server error")
		}
	}()

	return nil
}

// Stop gracefully stops the web server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping web server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	return nil
}

// loggingMiddleware logs each request at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}
