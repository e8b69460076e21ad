package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/oauth"
	"github.com/netomi/che-server/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	// shutdownTimeout bounds how long in-flight requests may run during shutdown.
	shutdownTimeout = 5 * time.Second
)

// Server serves the OAuth broker HTTP endpoints.
type Server struct {
	config config.ServerConfig
	broker *oauth.Broker

	// publicURL is the externally visible base URL, used to build
	// self-referential links in the provider directory.
	publicURL *url.URL

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server over the given broker. The config's public URL must
// be a valid absolute URL.
func New(cfg config.ServerConfig, broker *oauth.Broker) (*Server, error) {
	publicURL, err := url.Parse(cfg.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("invalid public URL %q: %w", cfg.PublicURL, err)
	}

	return &Server{
		config:    cfg,
		broker:    broker,
		publicURL: publicURL,
	}, nil
}

// Start begins serving HTTP requests. The server runs in a background
// goroutine until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.createMux(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	httpServer := s.httpServer
	go func() {
		logging.Info("Server", "Serving OAuth endpoints on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Server", err, "HTTP server error")
		}
	}()

	// Tell systemd we are up; a no-op outside a systemd unit.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Server", "Failed to notify systemd readiness: %v", err)
	}

	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if httpServer == nil {
		return fmt.Errorf("server not started")
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logging.Warn("Server", "Failed to notify systemd shutdown: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logging.Info("Server", "Stopping HTTP server")
	return httpServer.Shutdown(shutdownCtx)
}
