// Package server exposes a NugulMap map session over HTTP so that a
// UI can drive it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cicconee/nugulmap/internal/auth"
	"github.com/cicconee/nugulmap/internal/explorer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	Router *chi.Mux
	Addr   string

	// Interval is how often the current region is fetched in the
	// background. Zero disables the background refresh.
	Interval time.Duration

	// AllowedOrigins are the browser origins the UI is served
	// from. Empty allows any origin.
	AllowedOrigins []string

	Logger   *slog.Logger
	Zones    ZoneService
	Explorer *explorer.Explorer
	Session  *auth.Session

	handler      *Handler
	shutdownCh   chan os.Signal
	worker       *worker
	workerKillCh chan<- struct{}
	wg           *sync.WaitGroup
	once         sync.Once
}

func (s *Server) addr() string {
	if s.Addr == "" {
		s.Addr = "8080"
	}

	return fmt.Sprintf(":%s", s.Addr)
}

func (s *Server) init() {
	s.once.Do(func() {
		s.handler = NewHandler(s.Logger, s.Zones, s.Explorer, s.Session)
		s.setRoutes()

		workerKillCh := make(chan struct{})
		s.workerKillCh = workerKillCh
		s.worker = &worker{
			explorer: s.Explorer,
			logger:   s.Logger,
			d:        s.Interval,
			killCh:   workerKillCh,
		}

		s.wg = &sync.WaitGroup{}
	})
}

func (s *Server) setRoutes() {
	authRequired := AuthRequired(s.Session, s.Logger)

	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.Router.Use(middleware.RealIP, middleware.Recoverer)
	s.Router.Use(RequestLogger(s.Logger))
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	s.Router.Get("/zones", s.handler.HandleGetZones())
	s.Router.Get("/zones/search", s.handler.HandleSearchZones())
	s.Router.Get("/zones/my", authRequired(s.handler.HandleGetMyZones()))
	s.Router.Get("/zones/{id}", s.handler.HandleGetZone())
	s.Router.Post("/zones", authRequired(s.handler.HandleCreateZone()))
	s.Router.Delete("/zones/{id}", authRequired(s.handler.HandleDeleteZone()))

	s.Router.Post("/region", s.handler.HandlePostRegion())
	s.Router.Post("/region/refresh", s.handler.HandleRefreshRegion())

	s.Router.Get("/favorites", s.handler.HandleGetFavorites())
	s.Router.Post("/favorites/{id}", s.handler.HandleToggleFavorite())

	s.Router.Post("/detail/{id}", s.handler.HandleOpenDetail())
	s.Router.Delete("/detail", s.handler.HandleCloseDetail())

	s.Router.Get("/auth/me", s.handler.HandleGetMe())
	s.Router.Post("/auth/token", s.handler.HandlePostToken())
	s.Router.Delete("/auth/token", s.handler.HandleDeleteToken())
	s.Router.Get("/auth/login/{provider}", s.handler.HandleLogin())
	s.Router.Get("/auth/callback", s.handler.HandleCallback())
}

func (s *Server) run(runFn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		runFn()
	}()
}

func (s *Server) listenAndServe() error {
	httpServer := &http.Server{
		Addr:              s.addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	startCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			startCh <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	s.Logger.Info("server listening", "addr", httpServer.Addr, "refresh_interval", s.Interval)

	// Wait for either a shutdown signal or an error if the server
	// cannot start.
	select {
	case err := <-startCh:
		s.stopWorker()
		return err
	case sig := <-s.shutdownCh:
		s.Logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 7*time.Second)
		defer func() {
			defer cancel()
			s.stopWorker()
		}()

		// Gracefully shutdown the http server.
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}

// stopWorker kills the background worker and waits for it.
func (s *Server) stopWorker() {
	close(s.workerKillCh)
	s.wg.Wait()
}

func (s *Server) validate() error {
	if s.Router == nil {
		return errors.New("router is nil")
	}

	if s.Logger == nil {
		return errors.New("logger is nil")
	}

	if s.Zones == nil {
		return errors.New("zones is nil")
	}

	if s.Explorer == nil {
		return errors.New("explorer is nil")
	}

	if s.Session == nil {
		return errors.New("session is nil")
	}

	if s.Interval < 0 {
		return errors.New("interval is negative")
	}

	return nil
}

// Handler returns the routed handler without listening, for callers
// that serve it themselves.
func (s *Server) Handler() (http.Handler, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	s.init()
	return s.Router, nil
}

// Start serves until SIGINT or SIGTERM, running the background
// refresh when Interval is set.
func (s *Server) Start() error {
	if err := s.validate(); err != nil {
		return err
	}

	s.init()

	s.shutdownCh = make(chan os.Signal, 1)
	signal.Notify(s.shutdownCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.shutdownCh)

	if s.Interval > 0 {
		s.run(func() {
			s.worker.start()
		})
	}

	return s.listenAndServe()
}
