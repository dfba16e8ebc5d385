package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/moolen/bonvoyage/internal/apiserver"
	"github.com/moolen/bonvoyage/internal/lifecycle"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/tracing"
	"github.com/spf13/cobra"
)

var (
	servePort         int
	serveAuditLogPath string
	serveParallel     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BonVoyage web app",
	Long: `Start the web front end. It serves the trip form, renders finished
itineraries with a download link, and exposes a JSON API, /health and /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port, default 8501)")
	serveCmd.Flags().StringVar(&serveAuditLogPath, "audit-log", "", "Append a JSONL audit trail of every run to this file")
	serveCmd.Flags().BoolVar(&serveParallel, "parallel", false, "Run research and guide stages concurrently")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger("server")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveParallel {
		cfg.Pipeline.Parallel = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("Starting BonVoyage v%s", Version)

	// Tracing is installed first so the executor picks up the global provider.
	tracingProvider, err := tracing.NewProvider(cfg.Tracing, Version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := newPlanStack(ctx, cfg, serveAuditLogPath)
	if err != nil {
		_ = tracingProvider.Stop(context.Background())
		return err
	}

	server, err := apiserver.New(apiserver.Options{
		Config:   cfg.Server,
		Planner:  stack.planner,
		Gatherer: stack.registry,
		Metrics:  stack.metrics,
	})
	if err != nil {
		_ = stack.Close()
		return err
	}

	// The audit log closes after the server has drained in-flight plans.
	auditLog := &lifecycle.Func{
		ComponentName: "audit log",
		StopFunc: func(context.Context) error {
			return stack.Close()
		},
	}

	manager := lifecycle.NewManager()
	manager.SetShutdownTimeout(15 * time.Second)
	for _, reg := range []struct {
		component lifecycle.Component
		deps      []lifecycle.Component
	}{
		{tracingProvider, nil},
		{auditLog, nil},
		{server, []lifecycle.Component{tracingProvider, auditLog}},
	} {
		if err := manager.Register(reg.component, reg.deps...); err != nil {
			_ = stack.Close()
			return err
		}
	}

	logger.Info("Planning with %s (%d stages, parallel=%t)", stack.planner.Model(), stack.planner.StageCount(), cfg.Pipeline.Parallel)
	if err := manager.Run(ctx); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
