package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/keyward/keyward/config"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

// Closer releases a resource after the HTTP server has drained, like the
// event publisher or the database pool.
type Closer struct {
	Name  string
	Close func() error
}

type Server struct {
	configProvider *config.Provider
	handler        http.Handler
	logger         *slog.Logger
	closers        []Closer

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

func NewServer(provider *config.Provider, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		configProvider: provider,
		handler:        handler,
		logger:         logger,
		ready:          make(chan struct{}),
	}
}

// AddCloser registers c to run on shutdown, after the server stopped
// accepting requests. Closers run in registration order.
func (s *Server) AddCloser(c Closer) {
	s.closers = append(s.closers, c)
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves until ctx is done, a termination signal arrives or the server
// fails, then shuts down gracefully within server.shutdown_graceful_timeout.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.configProvider.Get().Server

	s.logger.Info("Server configuration",
		"addr", cfg.Addr,
		"read_timeout", cfg.ReadTimeout.Duration,
		"read_header_timeout", cfg.ReadHeaderTimeout.Duration,
		"write_timeout", cfg.WriteTimeout.Duration,
		"idle_timeout", cfg.IdleTimeout.Duration,
		"shutdown_timeout", cfg.ShutdownGracefulTimeout.Duration,
		"max_conns", cfg.MaxConns,
	)

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.runClosers()
		return fmt.Errorf("server: listen on %s: %w", cfg.Addr, err)
	}
	if cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConns)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	serverError := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Serve error", "err", err)
			serverError <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(
		ctx,
		syscall.SIGHUP,  // kill -SIGHUP XXXX
		syscall.SIGINT,  // kill -SIGINT XXXX or Ctrl+c
		syscall.SIGQUIT, // kill -SIGQUIT XXXX
		syscall.SIGTERM,
	)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		s.logger.Info("Received shutdown signal - gracefully shutting down")
	case runErr = <-serverError:
		s.logger.Error("Server error - initiating shutdown", "err", runErr)
	}

	// Reset signals default behavior, a second signal kills the process
	stop()

	gracefulCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownGracefulTimeout.Duration)
	defer cancelShutdown()

	shutdownGroup, _ := errgroup.WithContext(gracefulCtx)
	shutdownGroup.Go(func() error {
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(gracefulCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
			return err
		}
		s.logger.Info("HTTP server stopped gracefully")
		return nil
	})

	if err := shutdownGroup.Wait(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if err := s.runClosers(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if runErr != nil {
		s.logger.Error("Error during shutdown", "err", runErr)
		return runErr
	}
	s.logger.Info("All systems stopped gracefully")
	return nil
}

func (s *Server) runClosers() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Error("Close error", "name", c.Name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		s.logger.Info("Closed", "name", c.Name)
	}
	return errors.Join(errs...)
}
