package apiserver

import "github.com/prometheus/client_golang/prometheus/promhttp"

// registerHandlers registers all HTTP handlers
func (s *Server) registerHandlers() {
	// Web form
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.HandleFunc("POST /plans", s.withRateLimit(s.handleSubmit))
	s.router.HandleFunc("GET /plans/{id}/download", s.handleDownload)

	// JSON API
	s.router.HandleFunc("POST /api/v1/plans", s.withRateLimit(s.handleCreatePlan))

	// Health and metrics
	s.router.HandleFunc("GET /health", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}
