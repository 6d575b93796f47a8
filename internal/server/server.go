// Package server wires the notes application together: it opens the
// database, builds the repository → service → handler chain, mounts the
// routes and runs the HTTP server until SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/handler"
	"github.com/sakif/notes/internal/middleware"
	"github.com/sakif/notes/internal/repository"
	"github.com/sakif/notes/internal/repository/cache"
	sqliteRepo "github.com/sakif/notes/internal/repository/sqlite"
	"github.com/sakif/notes/internal/service"
)

// publicPaths bypass the session check. Matched exactly.
var publicPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/logout",
	"/api/login",
	"/api/logout",
	"/api/health",
}

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database (running migrations) and builds the router.
// The caller must eventually call Start or Close to release the database.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, logger)
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

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database without starting the listener.
func (s *Server) Close() error {
	return s.db.Close()
}

// Middleware order: RequestID must run before Logger so the id is logged,
// and Recoverer sits inside Logger so a panic is logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Session.Secret, s.config.Session.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var users repository.UserRepository = s.db.Users()
	if s.config.UserCacheTTL > 0 {
		users = cache.NewUserRepository(users, s.config.UserCacheTTL)
	}

	authService := service.NewAuthService(
		users,
		tokens,
		auth.NewPasswordService(),
		service.AdminCredentials{
			Username:     s.config.Admin.Username,
			PasswordHash: s.config.Admin.PasswordHash,
		},
		s.logger,
	)
	if s.config.Admin.Enabled() {
		s.logger.Info("legacy admin login enabled", slog.String("username", s.config.Admin.Username))
	}

	categoryService := service.NewCategoryService(s.db.Categories(), s.logger)
	noteService := service.NewNoteService(s.db.Notes(), s.db.Categories(), s.logger)

	authHandler := handler.NewAuthHandler(authService, !s.config.IsDevelopment(), s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/test", healthHandler.HandleTest)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(authService, publicPaths...))

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/me", authHandler.HandleMe)
		})
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.HandleList)
			r.Post("/", categoryHandler.HandleCreate)
			// Registered before /{id} so "all" is never parsed as an id.
			r.Delete("/all", categoryHandler.HandleDeleteAll)
			r.Put("/{id}", categoryHandler.HandleUpdate)
			r.Delete("/{id}", categoryHandler.HandleDelete)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", noteHandler.HandleList)
			r.Post("/", noteHandler.HandleCreate)
			r.Get("/category/{category}", noteHandler.HandleListByCategory)
			r.Delete("/category/{category}", noteHandler.HandleDeleteByCategory)
			r.Get("/{id}", noteHandler.HandleGet)
			r.Put("/{id}", noteHandler.HandleUpdate)
			r.Delete("/{id}", noteHandler.HandleDelete)
		})
	})

	return nil
}

// Start serves HTTP until SIGINT or SIGTERM, then gives in-flight requests
// 30 seconds to finish and closes the database.
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
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
