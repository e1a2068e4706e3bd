package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tbstudio/storyboard-agent/internal/export"
	"github.com/tbstudio/storyboard-agent/internal/imaging"
	"github.com/tbstudio/storyboard-agent/internal/persist"
	"github.com/tbstudio/storyboard-agent/internal/studio"
)

// Server serves the storyboard API on the loopback interface only.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// ServerConfig carries everything the handlers need. Port 0 picks a free
// port; Addr reports it once the server is listening.
type ServerConfig struct {
	Port        int
	Store       *studio.Store
	Slot        *persist.Slot
	Backend     string
	AutoSaver   *persist.AutoSaver
	Tokens      persist.KV
	Images      *imaging.Processor
	Exporter    *export.Exporter
	History     *export.History
	WarnBytes   int
	UploadLimit int64
	Logger      *slog.Logger
	StartTime   time.Time
	Version     string
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
			// uploads of large reference images
			ReadTimeout: 30 * time.Second,
			// exports stream without a deadline
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Listen binds the loopback address without serving yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Start listens (if Listen was not called) and serves until Shutdown.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("starting HTTP server", "addr", s.Addr())
	err := s.httpServer.Serve(s.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr is the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
