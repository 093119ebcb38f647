// Package healthcheck serves liveness, readiness and metrics for processes
// that have no other HTTP surface.
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

type Status int32

const (
	StatusStarting Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

type Response struct {
	Healthy bool   `json:"healthy"`
	Status  string `json:"status"`
}

type Config struct {
	Port int
}

// Server reports process state on /healthz, /readyz and /livez.
// /livez only fails once the status is StatusUnhealthy, so a starting
// process is not restarted before it had a chance to connect.
type Server struct {
	port   int
	status atomic.Int32
	ready  atomic.Bool
	mux    *http.ServeMux
	server *http.Server
	logger *slog.Logger
}

func NewServer(config Config, logger *slog.Logger) *Server {
	if config.Port == 0 {
		config.Port = 8090
	}

	s := &Server{
		port:   config.Port,
		mux:    http.NewServeMux(),
		logger: logger,
	}

	s.mux.HandleFunc("/healthz", s.healthzHandler)
	s.mux.HandleFunc("/readyz", s.readyzHandler)
	s.mux.HandleFunc("/livez", s.livezHandler)

	return s
}

// Handle mounts an extra handler, typically /metrics
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) SetStatus(status Status) {
	s.status.Store(int32(status))
	s.logger.Debug("Health check status updated", slog.String("status", status.String()))
}

func (s *Server) GetStatus() Status {
	return Status(s.status.Load())
}

func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.logger.Debug("Ready status updated", slog.Bool("ready", ready))
}

func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// Start serves until ctx is cancelled. A listen failure is returned
// immediately.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on health port %d: %w", s.port, err)
	}

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting health check server", slog.Int("port", s.port))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("health check server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	status := s.GetStatus()
	s.write(w, status == StatusHealthy, status)
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	s.write(w, s.IsReady(), s.GetStatus())
}

func (s *Server) livezHandler(w http.ResponseWriter, r *http.Request) {
	status := s.GetStatus()
	s.write(w, status != StatusUnhealthy, status)
}

func (s *Server) write(w http.ResponseWriter, ok bool, status Status) {
	w.Header().Set("Content-Type", "application/json")

	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(Response{Healthy: ok, Status: status.String()}); err != nil {
		s.logger.Error("Failed to encode health check response", slog.Any("error", err))
	}
}
