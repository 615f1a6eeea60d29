// Package server is the composition root: it wires the repositories,
// services, handlers, and middleware together and owns the HTTP server's
// lifecycle. No other package constructs cross-layer dependencies.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/samtm/motomeet/internal/auth"
	"github.com/samtm/motomeet/internal/config"
	"github.com/samtm/motomeet/internal/geocode"
	"github.com/samtm/motomeet/internal/handler"
	"github.com/samtm/motomeet/internal/middleware"
	sqliteRepo "github.com/samtm/motomeet/internal/repository/sqlite"
	"github.com/samtm/motomeet/internal/service"
)

// Server owns the router, the configuration, and the database connection.
// The connection is closed during graceful shutdown, after in-flight
// requests drain.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → services → handlers → routes
//
// Each layer receives only what it needs: services get repository
// interfaces, handlers get services, routes get handlers.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	geocoder := geocode.New(s.config.GoogleMapsAPIKey)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	userService := service.NewUserService(s.db, s.db, geocoder, s.logger)
	eventService := service.NewEventService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	eventHandler := handler.NewEventHandler(eventService, s.logger)
	placesHandler := handler.NewPlacesHandler(geocoder, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	// Credential endpoints get a tight budget per client; event creation and
	// the autocomplete proxy get the limits the frontend was built against.
	credentialLimit := middleware.NewRateLimiter(rate.Limit(0.5), 2)
	createLimit := middleware.PerMinute(3)
	autocompleteLimit := middleware.PerMinute(30)

	s.router.Route("/api", func(r chi.Router) {
		// Public.
		r.Group(func(r chi.Router) {
			r.Use(credentialLimit.Handler)
			r.Post("/signup", authHandler.HandleSignup)
			r.Post("/login", authHandler.HandleLogin)
		})
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/news", eventHandler.HandleNews)

		// Session required.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/verify", authHandler.HandleVerify)
			r.Post("/set_location", userHandler.HandleSetLocation)
			r.Get("/profile", userHandler.HandleProfile)
			r.Get("/home", eventHandler.HandleHome)
			r.Post("/home", eventHandler.HandleRSVP)
			r.Post("/update_event", eventHandler.HandleUpdateEvent)
			r.Post("/cancel_event", eventHandler.HandleCancelEvent)
			r.Post("/geocode", placesHandler.HandleGeocode)

			r.With(createLimit.Handler).Post("/create_event", eventHandler.HandleCreateEvent)
			r.With(autocompleteLimit.Handler).Post("/autocomplete", placesHandler.HandleAutocomplete)
		})
	})

	if github != nil {
		s.router.Route("/auth/github", func(r chi.Router) {
			r.Get("/login", authHandler.HandleGitHubLogin)
			r.Get("/callback", authHandler.HandleGitHubCallback)
		})
	}

	return nil
}

// Router exposes the configured router, used by handler-level tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
