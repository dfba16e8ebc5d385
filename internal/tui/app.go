package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"golang.org/x/term"
)

// RunFunc runs the pipeline, reporting progress to observer.
type RunFunc func(ctx context.Context, observer pipeline.Observer) (*pipeline.Result, error)

// Config contains configuration for a progress display.
type Config struct {
	Title string
	Steps []Step

	// Input and Output default to the process terminal.
	Input  io.Reader
	Output io.Writer
}

// ErrCanceled is returned when the user quit the display before the run finished.
var ErrCanceled = errors.New("canceled by user")

// Run shows progress for run until it returns. Quitting the display cancels
// the run's context.
func Run(ctx context.Context, cfg Config, run RunFunc) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(cfg.Title, cfg.Steps)
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}
	program := tea.NewProgram(model, opts...)

	type outcome struct {
		result *pipeline.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := run(ctx, Observer(program.Send))
		program.Send(RunFinishedMsg{Result: result, Err: err})
		done <- outcome{result, err}
	}()

	_, uiErr := program.Run()
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		cancel()
		<-done
		return nil, fmt.Errorf("TUI error: %w", uiErr)
	}

	if model.Quitting() {
		cancel()
		<-done
		return nil, ErrCanceled
	}

	out := <-done
	return out.result, out.err
}

// IsTerminal returns true if f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RenderMarkdown renders an itinerary for the terminal. On failure the text is
// returned unchanged.
func RenderMarkdown(text string, width int) string {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

// TerminalWidth returns the width of f, or 0 when it is not a terminal.
func TerminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
