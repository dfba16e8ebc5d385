package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/moolen/bonvoyage/internal/api"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/travel"
	"github.com/moolen/bonvoyage/internal/trip"
	"github.com/moolen/bonvoyage/internal/tui"
	"github.com/spf13/cobra"
)

var (
	planFrom         string
	planTo           string
	planDepart       string
	planReturn       string
	planInterests    string
	planOutDir       string
	planAuditLogPath string
	planParallel     bool
	planNoRender     bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a trip from the command line",
	Long: `Run the three agents for one trip, show their progress, print the itinerary
and save it as Travel_Plan_<destination>_<departure>.txt.

Dates accept 2025-04-01 as well as natural language such as "next friday".`,
	Example: `  bonvoyage plan --from Paris --to Tokyo --depart 2025-04-01 --return 2025-04-05 --interests "food, temples"`,
	RunE:    runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFrom, "from", "", "City you are traveling from")
	planCmd.Flags().StringVar(&planTo, "to", "", "City you are traveling to")
	planCmd.Flags().StringVar(&planDepart, "depart", "", "Departure date")
	planCmd.Flags().StringVar(&planReturn, "return", "", "Return date")
	planCmd.Flags().StringVar(&planInterests, "interests", "", "What you enjoy, e.g. \"food, museums, hiking\"")
	planCmd.Flags().StringVarP(&planOutDir, "out", "o", ".", "Directory the itinerary file is written to")
	planCmd.Flags().StringVar(&planAuditLogPath, "audit-log", "", "Append a JSONL audit trail of the run to this file")
	planCmd.Flags().BoolVar(&planParallel, "parallel", false, "Run research and guide stages concurrently")
	planCmd.Flags().BoolVar(&planNoRender, "raw", false, "Print the itinerary as plain markdown")
}

func runPlan(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger("plan")
	out := cmd.OutOrStdout()

	// Input is validated before any agent or API key is touched.
	req, err := trip.Parse(planFrom, planTo, planDepart, planReturn, planInterests, time.Now())
	if err != nil {
		return errors.New(api.FromError(err).Message)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if planParallel {
		cfg.Pipeline.Parallel = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stack, err := newPlanStack(ctx, cfg, planAuditLogPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("Failed to close audit log: %v", err)
		}
	}()

	steps := make([]tui.Step, 0, stack.planner.StageCount())
	for _, st := range stack.planner.Stages() {
		steps = append(steps, tui.Step{ID: st.ID, Label: travel.StageLabel(st.ID)})
	}

	terminal, isTTY := out.(*os.File)
	isTTY = isTTY && tui.IsTerminal(terminal)

	var result *pipeline.Result
	if isTTY {
		result, err = tui.Run(ctx, tui.Config{
			Title:  fmt.Sprintf("BonVoyage: %s to %s", req.Origin(), req.Destination()),
			Steps:  steps,
			Output: out,
		}, func(ctx context.Context, observer pipeline.Observer) (*pipeline.Result, error) {
			return stack.planner.Plan(ctx, req, observer)
		})
	} else {
		fmt.Fprintf(out, "AI agents are working on your travel plan (%s)...\n", req)
		result, err = stack.planner.Plan(ctx, req, tui.PlainObserver(out, steps))
	}
	if err != nil {
		return errors.New(api.ErrorMessage(err))
	}

	path, err := writePlan(planOutDir, req.FileName(), result.Final.Text)
	if err != nil {
		return err
	}

	printItinerary(out, result.Final.Text, isTTY && !planNoRender, terminal)
	fmt.Fprintf(out, "\nYour travel plan is ready! Saved to %s\n", path)
	return nil
}

// writePlan saves the itinerary byte for byte.
func writePlan(dir, name, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write travel plan: %w", err)
	}
	return path, nil
}

func printItinerary(out io.Writer, text string, render bool, terminal *os.File) {
	if render {
		fmt.Fprint(out, tui.RenderMarkdown(text, tui.TerminalWidth(terminal)))
		return
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, text)
}
