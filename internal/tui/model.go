package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/moolen/bonvoyage/internal/pipeline"
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconPending = "·"

	finalizeLabel = "Finalizing your travel plan"
	barWidth      = 30
)

// Step is one pipeline stage as shown to the user.
type Step struct {
	ID    pipeline.StageID
	Label string
}

type stepState struct {
	Step
	status   Status
	duration time.Duration
	err      error
}

// Model is the Bubble Tea model for a single planner run. It shows one line
// per stage plus a final step that completes when the run returns.
type Model struct {
	title    string
	steps    []stepState
	final    stepState
	spinner  spinner.Model
	start    time.Time
	now      func() time.Time
	done     bool
	quitting bool
	result   *pipeline.Result
	err      error
}

// NewModel creates a model for the given stage list.
func NewModel(title string, steps []Step) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stepActiveStyle

	states := make([]stepState, len(steps))
	for i, st := range steps {
		states[i] = stepState{Step: st}
	}

	return &Model{
		title:   title,
		steps:   states,
		final:   stepState{Step: Step{Label: finalizeLabel}},
		spinner: s,
		start:   time.Now(),
		now:     time.Now,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case StageStartedMsg:
		if st := m.step(msg.Stage); st != nil {
			st.status = StatusActive
		}
		return m, nil

	case StageCompletedMsg:
		if st := m.step(msg.Stage); st != nil {
			st.status = StatusCompleted
			st.duration = msg.Duration
		}
		return m, nil

	case StageFailedMsg:
		if st := m.step(msg.Stage); st != nil {
			st.status = StatusError
			st.err = msg.Err
		}
		return m, nil

	case RunFinishedMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		if msg.Err != nil {
			m.final.status = StatusError
		} else {
			m.final.status = StatusCompleted
			m.final.duration = m.now().Sub(m.start)
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) step(id pipeline.StageID) *stepState {
	for i := range m.steps {
		if m.steps[i].ID == id {
			return &m.steps[i]
		}
	}
	return nil
}

// Progress is the completed fraction of all steps, final step included.
func (m *Model) Progress() float64 {
	total := len(m.steps) + 1
	completed := 0
	for _, st := range m.steps {
		if st.status == StatusCompleted {
			completed++
		}
	}
	if m.final.status == StatusCompleted {
		completed++
	}
	return float64(completed) / float64(total)
}

// Result returns the finished run, if any.
func (m *Model) Result() (*pipeline.Result, error) {
	return m.result, m.err
}

// Quitting reports whether the user aborted the run.
func (m *Model) Quitting() bool {
	return m.quitting
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("AI agents are working on your travel plan..."))
	b.WriteString("\n\n")

	total := len(m.steps) + 1
	for i, st := range m.steps {
		b.WriteString(m.renderStep(i+1, total, st))
		b.WriteString("\n")
	}
	b.WriteString(m.renderStep(total, total, m.final))
	b.WriteString("\n\n")

	b.WriteString(renderBar(m.Progress()))
	b.WriteString("\n")

	switch {
	case m.done && m.err == nil:
		b.WriteString("\n")
		b.WriteString(successStyle.Render("Your travel plan is ready!"))
		b.WriteString("\n")
	case m.done:
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("An error occurred: %v", m.err)))
		b.WriteString("\n")
	case !m.quitting:
		b.WriteString(helpStyle.Render("ctrl+c to cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderStep(n, total int, st stepState) string {
	label := fmt.Sprintf("Step %d/%d: %s", n, total, st.Label)
	switch st.status {
	case StatusActive:
		return m.spinner.View() + " " + stepActiveStyle.Render(label+"...")
	case StatusCompleted:
		line := stepDoneStyle.Render(iconSuccess + " " + label)
		if st.duration > 0 {
			line += " " + durationStyle.Render(fmt.Sprintf("(%s)", st.duration.Round(100*time.Millisecond)))
		}
		return line
	case StatusError:
		return stepErrorStyle.Render(iconError + " " + label)
	default:
		return stepPendingStyle.Render(iconPending + " " + label)
	}
}

func renderBar(fraction float64) string {
	filled := int(fraction * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %3.0f%%", fraction*100)
}
