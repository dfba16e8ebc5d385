// Package apiserver serves the BonVoyage web front end: the trip form, the
// rendered itinerary with its download link, and a JSON API for the same
// pipeline.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/moolen/bonvoyage/internal/api"
	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/trip"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Planner runs the travel pipeline for one request.
type Planner interface {
	Plan(ctx context.Context, req trip.Request, observers ...pipeline.Observer) (*pipeline.Result, error)
}

// Options configures a Server.
type Options struct {
	Config  config.ServerConfig
	Planner Planner

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Metrics records rejected submissions. Optional.
	Metrics *metrics.Metrics

	// Now defaults to time.Now. Relative dates in the form resolve against it.
	Now func() time.Time
}

// Server handles the web form and the JSON API.
type Server struct {
	port     int
	server   *http.Server
	listener net.Listener
	router   *http.ServeMux
	handler  http.Handler
	logger   *logging.Logger

	planner  Planner
	plans    *planStore
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
	now      func() time.Time

	// Per-client submission limiters, reset hourly.
	mu           sync.Mutex
	rateLimiters map[string]*rate.Limiter
	lastCleanup  time.Time
	perMinute    int

	// Peers allowed to name the client in proxy headers.
	trustedProxies []netip.Prefix
}

// New creates a server. It does not listen until Start.
func New(opts Options) (*Server, error) {
	if opts.Planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	trusted, err := opts.Config.TrustedProxyPrefixes()
	if err != nil {
		return nil, err
	}

	s := &Server{
		port:      opts.Config.Port,
		router:    http.NewServeMux(),
		logger:    logging.GetLogger("apiserver"),
		planner:   opts.Planner,
		plans:     newPlanStore(opts.Config.MaxPlans, opts.Config.PlanTTL),
		gatherer:  opts.Gatherer,
		metrics:   opts.Metrics,
		now:       opts.Now,
		perMinute: opts.Config.RequestsPerMinute,

		trustedProxies: trusted,
	}

	s.registerHandlers()
	s.handler = s.loggingMiddleware(s.router)

	// Plans take minutes; the write timeout has to cover a full pipeline run.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start implements lifecycle.Component. It binds the port synchronously so a
// busy port fails startup, then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("BonVoyage listening on http://localhost:%d", s.port)
	return nil
}

// Stop implements lifecycle.Component and drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping web server...")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("Web server shutdown: %v", err)
		return err
	}
	s.logger.Info("Web server stopped")
	return nil
}

// Name implements lifecycle.Component.
func (s *Server) Name() string {
	return "web server"
}

// Addr is the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.Respond(w, http.StatusOK, map[string]string{"status": "healthy"})
}
