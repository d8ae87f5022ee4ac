package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"nexus/internal/config"
	"nexus/internal/domain"
	"nexus/internal/eventbus"
	"nexus/internal/ports"
	"nexus/internal/usecase"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Dispatcher is the slice of usecase.Dispatcher the HTTP surface drives.
type Dispatcher interface {
	DispatchUpload(ctx context.Context, u usecase.Upload) (usecase.UploadResult, error)
	DispatchCommand(ctx context.Context, text string) (usecase.CommandResult, error)
	RecentTasks(ctx context.Context, limit int) ([]domain.Task, error)
}

type Server struct {
	router   *chi.Mux
	cfg      config.HTTP
	dispatch Dispatcher
	hub      *eventbus.Hub
	events   ports.EventBus
	now      func() time.Time
}

// NewServer mounts the routes at the root and under /api. Events from
// websocket connections are published to events; the stream reads hub.
func NewServer(cfg config.HTTP, d Dispatcher, hub *eventbus.Hub, events ports.EventBus) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		dispatch: d,
		hub:      hub,
		events:   events,
		now:      time.Now,
	}

	routes := func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/command", s.handleCommand)
		r.Get("/tasks", s.handleTasks)
		r.Get("/events", s.handleEvents)
		r.Get("/healthz", s.handleHealth)
	}
	routes(s.router)
	s.router.Route("/api", routes)

	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(
		s.router,
		recoverHandler,
		loggerHandler(func(w http.ResponseWriter, r *http.Request) bool { return r.URL.Path == "/healthz" }),
		realIPHandler,
		requestIDHandler,
		corsHandler,
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	httpServer := http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info().Msg("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		done <- httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("server serving on port %d", s.cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
