package agent

import (
	"fmt"
	"strings"

	"github.com/moolen/bonvoyage/internal/pipeline"
)

// instructionEscaper removes template braces. ADK resolves {name} in agent
// instructions against session state, and persona text is user configurable.
var instructionEscaper = strings.NewReplacer("{", "(", "}", ")")

// Instruction renders a persona as the system instruction of a stage agent.
func Instruction(p pipeline.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s.\n", strings.TrimSpace(p.Role))
	if goal := strings.TrimSpace(p.Goal); goal != "" {
		fmt.Fprintf(&b, "\nYour goal: %s\n", goal)
	}
	if backstory := strings.TrimSpace(p.Backstory); backstory != "" {
		fmt.Fprintf(&b, "\n%s\n", backstory)
	}
	b.WriteString("\nWork on your own. When you have enough information, answer with the complete final result and nothing else.")
	return instructionEscaper.Replace(b.String())
}

// UserMessage renders the task, its expected output and the texts of the
// stages it depends on as the single user turn of a stage.
func UserMessage(req pipeline.GenerateRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Task.Description))

	if expected := strings.TrimSpace(req.Task.ExpectedOutput); expected != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer:\n")
		b.WriteString(expected)
	}

	if len(req.Context) > 0 {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(strings.Join(req.Context.Texts(), "\n\n"))
	}
	return b.String()
}

// agentName derives a valid ADK agent name for a stage.
func agentName(req pipeline.GenerateRequest) string {
	name := req.Agent.Name
	if name == "" {
		name = string(req.Stage) + "_agent"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
