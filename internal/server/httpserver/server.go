// Package httpserver provides the HTTP/HTTPS server for data-scribbler.
package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Config holds listener settings for Server.
type Config struct {
	Addr        string
	TLSCertFile string
	TLSKeyFile  string

	// TLS, when set, takes precedence over the cert and key files so the
	// certificate can be swapped without a restart.
	TLS *tls.Config

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server represents the HTTP server.
//
// @req RQ-0301
// @design DS-0301
type Server struct {
	cfg        Config
	httpServer *http.Server
	logger     *slog.Logger

	// OnDrain runs when shutdown starts, before in-flight requests finish.
	OnDrain func()
}

// New creates a new HTTP server.
//
// @design DS-0301
func New(cfg Config, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			TLSConfig:         cfg.TLS,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
	}
}

// TLSEnabled reports whether the server terminates TLS itself.
func (s *Server) TLSEnabled() bool {
	return s.cfg.TLS != nil || (s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "")
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	switch {
	case s.cfg.TLS != nil:
		err = s.httpServer.ServeTLS(ln, "", "")
	case s.TLSEnabled():
		err = s.httpServer.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	default:
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully within the shutdown timeout.
//
// @design DS-0301
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.RunListener(ctx, ln)
}

// RunListener is Run over an existing listener.
func (s *Server) RunListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", s.TLSEnabled())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server.
//
// @design DS-0301
func (s *Server) Shutdown(ctx context.Context) error {
	if s.OnDrain != nil {
		s.OnDrain()
	}
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
