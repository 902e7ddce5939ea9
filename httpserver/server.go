package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Khagendra01/cloud-py-exec/config"
)

// Server owns the HTTP listener for the execution API
type Server struct {
	logger *zap.Logger
	srv    *http.Server
}

// New creates the HTTP server with routes and middleware wired
func New(cfg *config.Config, log *zap.Logger, exec Executor) *Server {
	engine := NewRouter(cfg, log, exec)

	return &Server{
		logger: log,
		// No WriteTimeout: a request legitimately holds the connection
		// for up to the maximum script timeout plus grace.
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start runs the listener until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.srv.Shutdown(ctx)
}
