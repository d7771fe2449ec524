// Package server is the composition root: it opens storage, builds services
// and handlers, mounts routes, and runs the HTTP server until a signal.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/config"
	"github.com/sakif/recipebox/internal/handler"
	"github.com/sakif/recipebox/internal/middleware"
	"github.com/sakif/recipebox/internal/repository"
	"github.com/sakif/recipebox/internal/repository/sqlstore"
	"github.com/sakif/recipebox/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every resource that must be closed on exit.
type Server struct {
	router chi.Router
	config config.Config
	logger *slog.Logger
	store  repository.Store

	// closers run in order on Close, after the HTTP server has stopped.
	closers []io.Closer
}

// New opens the configured store and denylist and wires the routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		closers: []io.Closer{store},
	}

	denylist, err := s.openDenylist()
	if err != nil {
		s.Close()
		return nil, err
	}

	if err := s.setupRoutes(denylist); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := sqlstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, nil
	case config.DriverSQLite, "":
		db, err := sqlstore.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown DB driver %q", cfg.DBDriver)
	}
}

// openDenylist uses Redis when REDIS_URL is set so logouts are shared across
// replicas, and an in-process list otherwise.
func (s *Server) openDenylist() (auth.Denylist, error) {
	if s.config.RedisURL == "" {
		s.logger.Info("token denylist: in memory")
		return auth.NewMemoryDenylist(), nil
	}

	client, err := auth.NewRedisClient(context.Background(), s.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("opening redis denylist: %w", err)
	}
	s.closers = append(s.closers, client)
	s.logger.Info("token denylist: redis", slog.String("addr", client.Options().Addr))
	return auth.NewRedisDenylist(client), nil
}

// setupRoutes mounts middleware and handlers.
//
// Middleware order: RequestID, RealIP, Logger, Recoverer, CORS. Logger sits
// outside Recoverer so a recovered panic is still logged with its 500.
func (s *Server) setupRoutes(denylist auth.Denylist) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(s.store, tokens, auth.NewPasswordService(), denylist, s.logger)
	recipeService := service.NewRecipeService(s.store, s.logger)
	favoriteService := service.NewFavoriteService(s.store, s.store, s.logger)
	commentService := service.NewCommentService(s.store, s.store, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	recipeHandler := handler.NewRecipeHandler(recipeService, s.logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/recipes", recipeHandler.HandleList)
	s.router.Get("/recipes/{id}", recipeHandler.HandleGet)
	s.router.Get("/recipes/{id}/comments", commentHandler.HandleList)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService, s.logger))
		r.Use(middleware.TagUser)

		r.Get("/me", authHandler.HandleMe)
		r.Get("/me/favorites", favoriteHandler.HandleListMine)
		r.Post("/logout", authHandler.HandleLogout)

		r.Post("/recipes", recipeHandler.HandleCreate)
		r.Put("/recipes/{id}", recipeHandler.HandleUpdate)
		r.Delete("/recipes/{id}", recipeHandler.HandleDelete)
		r.Post("/recipes/{id}/favorite", favoriteHandler.HandleAdd)
		r.Delete("/recipes/{id}/favorite", favoriteHandler.HandleRemove)
		r.Post("/recipes/{id}/comments", commentHandler.HandleAdd)
	})

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the Redis client, if any.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("db_driver", s.config.DBDriver),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
