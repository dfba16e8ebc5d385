package commands

import (
	"context"
	"fmt"

	"github.com/moolen/bonvoyage/internal/agent/audit"
	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/travel"
	"github.com/prometheus/client_golang/prometheus"
)

// planStack is everything a command needs to run plans.
type planStack struct {
	planner  *travel.Planner
	audit    *audit.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// newPlanStack builds the planner, metrics and the optional audit log. A
// missing API key surfaces here as a *config.ConfigurationError, before any
// request is accepted.
func newPlanStack(ctx context.Context, cfg *config.Config, auditLogPath string) (*planStack, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	var auditLog *audit.Logger
	if auditLogPath != "" {
		var err error
		if auditLog, err = audit.NewLogger(auditLogPath); err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	planner, err := travel.NewPlanner(ctx, travel.Options{
		Config:  cfg,
		Metrics: m,
		Audit:   auditLog,
	})
	if err != nil {
		_ = auditLog.Close()
		return nil, err
	}

	return &planStack{
		planner:  planner,
		audit:    auditLog,
		registry: registry,
		metrics:  m,
	}, nil
}

func (s *planStack) Close() error {
	return s.audit.Close()
}
