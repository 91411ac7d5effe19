// Package server runs an HTTP server whose lifetime is bound to a context.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/logging"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for open requests.
const DefaultShutdownTimeout = 5 * time.Second

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once

	mu       sync.Mutex
	listener net.Listener
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
		shutdownCh:      make(chan struct{}),
	}
}

// Listen binds the listening socket. Calling it before Run lets callers
// learn the bound address when addr used port 0. It is idempotent.
func (gs *GracefulServer) Listen() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", gs.server.Addr, err)
	}
	gs.listener = ln
	return nil
}

// UseListener makes the server accept on ln instead of binding its own
// address. It must be called before Listen or Run.
func (gs *GracefulServer) UseListener(ln net.Listener) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.listener = ln
}

// Addr returns the bound address, or the configured one before Listen.
func (gs *GracefulServer) Addr() string {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.listener != nil {
		return gs.listener.Addr().String()
	}
	return gs.server.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// nil after a clean shutdown.
func (gs *GracefulServer) Run(ctx context.Context) error {
	if err := gs.Listen(); err != nil {
		return err
	}

	gs.mu.Lock()
	ln := gs.listener
	gs.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("HTTP server listening", logging.Addr(ln.Addr().String()))
		errCh <- gs.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
		if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		shutdownErr := gs.server.Shutdown(ctx)

		// A listener that never reached Serve is not tracked by http.Server.
		gs.mu.Lock()
		if gs.listener != nil {
			_ = gs.listener.Close()
		}
		gs.mu.Unlock()

		if shutdownErr != nil {
			err = fmt.Errorf("failed to shut down HTTP server: %w", shutdownErr)
			gs.logger.Error("HTTP shutdown incomplete", logging.Error(shutdownErr))
			return
		}
		gs.logger.Info("HTTP server stopped")
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}
