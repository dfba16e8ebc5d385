package model

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/default.yaml
var defaultScenario []byte

// Scenario scripts the scripted model. Each agent conversation is matched to a
// Script by its system instruction and prompt; the script's steps are then
// replayed one per model turn.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Settings    ScenarioSettings `yaml:"settings,omitempty"`

	// Scripts are tried in order; the first match wins. A script without a
	// match pattern matches everything and belongs last.
	Scripts []Script `yaml:"scripts"`
}

// ScenarioSettings holds timing settings.
type ScenarioSettings struct {
	// ThinkingDelayMs delays every response.
	ThinkingDelayMs int `yaml:"thinking_delay_ms,omitempty"`
}

// Script is the scripted side of one agent conversation.
type Script struct {
	// Match is a case-insensitive substring of the system instruction or prompt.
	Match string `yaml:"match,omitempty"`

	Steps []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one model turn.
type ScenarioStep struct {
	Text      string         `yaml:"text,omitempty"`
	ToolCalls []MockToolCall `yaml:"tool_calls,omitempty"`

	// Error makes the model call fail with this message.
	Error string `yaml:"error,omitempty"`
}

// MockToolCall is a function call the scripted model emits.
type MockToolCall struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args"`
}

// LoadScenario reads a scenario file. "~" expands to the home directory.
func LoadScenario(path string) (*Scenario, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// #nosec G304 -- scenario path is user configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// DefaultScenario returns the built-in scenario used by the "mock" model.
func DefaultScenario() *Scenario {
	s, err := ParseScenario(defaultScenario)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario is invalid: %v", err))
	}
	return s
}

// Validate checks that the scenario is usable.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Scripts) == 0 {
		return fmt.Errorf("scenario must have at least one script")
	}
	for i, script := range s.Scripts {
		if len(script.Steps) == 0 {
			return fmt.Errorf("scripts[%d]: at least one step is required", i)
		}
		if script.Match == "" && i != len(s.Scripts)-1 {
			return fmt.Errorf("scripts[%d]: only the last script may omit match", i)
		}
		for j, step := range script.Steps {
			if step.Text == "" && len(step.ToolCalls) == 0 && step.Error == "" {
				return fmt.Errorf("scripts[%d].steps[%d]: must have text, tool_calls or error", i, j)
			}
			for k, tc := range step.ToolCalls {
				if tc.Name == "" {
					return fmt.Errorf("scripts[%d].steps[%d].tool_calls[%d]: name is required", i, j, k)
				}
			}
		}
	}
	return nil
}

// scriptFor returns the first script matching content, or nil.
func (s *Scenario) scriptFor(content string) *Script {
	lower := strings.ToLower(content)
	for i := range s.Scripts {
		script := &s.Scripts[i]
		if script.Match == "" || strings.Contains(lower, strings.ToLower(script.Match)) {
			return script
		}
	}
	return nil
}
