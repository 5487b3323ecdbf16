package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mtr002/job-system/internal/jobs"
	"github.com/mtr002/job-system/internal/logger"
	"github.com/mtr002/job-system/internal/websocket"
)

func NewServer(manager *jobs.Manager, hub *websocket.Hub, addr string) *Server {
	return &Server{
		manager: manager,
		hub:     hub,
		http: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(manager, hub),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // /jobs/run waits as long as the client does
			IdleTimeout:  60 * time.Second,
		},
	}
}

type Server struct {
	manager *jobs.Manager
	hub     *websocket.Hub
	http    *http.Server
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Logger.Info().Str("addr", s.http.Addr).Msg("Starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
