// Package server exposes a small HTTP control API for triggering indexing
// runs and reading their statistics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/internal/models"
	"github.com/hyperjump/vectorize/internal/storage"
)

// Runner runs a full indexing pass over a directory.
type Runner interface {
	IndexDirectory(ctx context.Context, dir string, recursive bool) (*models.RunStatistics, error)
	Mode() string
}

// Options configure what a triggered run indexes and what /api/v1/status reports.
type Options struct {
	Dir       string
	Recursive bool
	// Store and Namespaces are counted for the status endpoint; Store may be nil.
	Store      storage.Store
	Namespaces []string
	DiskPaths  []string
	Logger     *zap.Logger
}

// Server is the HTTP control API.
type Server struct {
	runner Runner
	opts   Options
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server

	// runCtx is the parent of every triggered run; cancelled by Stop.
	runCtx    context.Context
	cancelRun context.CancelFunc
	active    atomic.Bool
	runs      sync.WaitGroup

	mu      sync.RWMutex
	latest  *models.RunStatistics
	lastErr string
}

// NewServer returns a server that triggers runs on runner.
func NewServer(runner Runner, cfg *config.ServerConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runner:    runner,
		opts:      opts,
		config:    cfg,
		logger:    logger,
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/runs", s.handleStartRun)
		r.Get("/runs/latest", s.handleLatestRun)
	})
	return r
}

// Start serves until the server is stopped.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down, cancels an active run and waits for it to
// flush its caches.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.cancelRun()
	s.Wait()
	return err
}

// Wait blocks until any triggered run has finished.
func (s *Server) Wait() {
	s.runs.Wait()
}

// startRun launches a run in the background. It returns false when one is
// already active.
func (s *Server) startRun() (bool, error) {
	if err := s.runCtx.Err(); err != nil {
		return false, err
	}
	if !s.active.CompareAndSwap(false, true) {
		return false, nil
	}
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.active.Store(false)
		stats, err := s.runner.IndexDirectory(s.runCtx, s.opts.Dir, s.opts.Recursive)
		s.mu.Lock()
		defer s.mu.Unlock()
		if stats != nil {
			s.latest = stats
		}
		s.lastErr = ""
		if err != nil {
			s.lastErr = err.Error()
			s.logger.Error("triggered run failed", zap.Error(err))
		}
	}()
	return true, nil
}
