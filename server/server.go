// Package server exposes the dashboard over a JSON HTTP API and streams live
// events to websocket clients.
//
// The caller's identity is read from a header set by the authenticating
// proxy in front of the server; every API route requires it.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/dashboard"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

// Config is the HTTP-facing subset of am.ServerConfig.
type Config struct {
	Port               int
	AllowedOrigins     []string
	IdentityHeader     string
	RateLimitPerMinute int
	RateBurst          int
}

// ConfigFrom extracts the server settings from the core configuration.
func ConfigFrom(c *am.Config) Config {
	return Config{
		Port:               c.GetServerPort(),
		AllowedOrigins:     c.Server.AllowedOrigins,
		IdentityHeader:     c.GetIdentityHeader(),
		RateLimitPerMinute: c.Server.RateLimitPerMinute,
		RateBurst:          c.Server.RateBurst,
	}
}

// DashboardServer serves the dashboard API.
type DashboardServer struct {
	service  *dashboard.Service
	hub      *Hub
	cfg      Config
	limiter  *identityLimiter
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
	clock    func() time.Time

	handler    http.Handler
	httpServer *http.Server

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server. The hub should already be registered as the
// service's event sink; New starts the hub loop.
func New(service *dashboard.Service, hub *Hub, cfg Config, log *zap.SugaredLogger) *DashboardServer {
	if log == nil {
		log = logger.ComponentLogger("server")
	}
	if cfg.IdentityHeader == "" {
		cfg.IdentityHeader = am.DefaultIdentityHeader
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &DashboardServer{
		service:  service,
		hub:      hub,
		cfg:      cfg,
		limiter:  newIdentityLimiter(cfg.RateLimitPerMinute, cfg.RateBurst),
		upgrader: newUpgrader(cfg.AllowedOrigins),
		logger:   log,
		clock:    time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.handler = s.routes()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		hub.Run(ctx)
	}()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *DashboardServer) Handler() http.Handler {
	return s.handler
}

// corsHandler allows browser clients from the configured origins to send
// the identity header.
func (s *DashboardServer) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID", s.cfg.IdentityHeader},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		MaxAge:           600,
	})
}

// Start listens on the configured port and blocks until ctx is cancelled or
// the listener fails. Cancellation triggers a graceful shutdown.
func (s *DashboardServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening",
			logger.FieldAddress, addr,
			logger.FieldPort, s.cfg.Port,
			"identity_header", s.cfg.IdentityHeader,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrapf(err, "listen on %s", addr)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		s.Stop()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting requests, waits for in-flight ones, then stops
// the event hub.
func (s *DashboardServer) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = errors.Wrap(shutdownErr, "shutdown HTTP server")
		}
	}
	s.Stop()
	s.logger.Infow("Server stopped")
	return err
}

// Stop cancels background goroutines and waits for them.
func (s *DashboardServer) Stop() {
	s.cancel()
	s.wg.Wait()
}
