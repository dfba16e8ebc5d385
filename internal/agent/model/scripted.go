package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/moolen/bonvoyage/internal/logging"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ScriptedLLM implements model.LLM by replaying a Scenario. It keeps no
// per-conversation state: the step is chosen by counting the model turns
// already present in the request, so one instance can serve concurrent agents.
type ScriptedLLM struct {
	scenario *Scenario
	delay    time.Duration
	logger   *logging.Logger

	mu  sync.Mutex
	log []ConversationEntry
}

// ConversationEntry records one model call.
type ConversationEntry struct {
	Timestamp time.Time

	// Script is the match pattern of the script that answered.
	Script string

	// DeclaredTools are the function names offered to the model.
	DeclaredTools []string

	Request   string
	Response  string
	ToolCalls []string
}

// ScriptedOption configures a ScriptedLLM.
type ScriptedOption func(*ScriptedLLM)

// WithDelay overrides the scenario's thinking delay.
func WithDelay(d time.Duration) ScriptedOption {
	return func(m *ScriptedLLM) {
		m.delay = d
	}
}

// NewScriptedLLM loads a scenario file, or the built-in scenario when path is empty.
func NewScriptedLLM(path string, opts ...ScriptedOption) (*ScriptedLLM, error) {
	scenario := DefaultScenario()
	if path != "" {
		var err error
		scenario, err = LoadScenario(path)
		if err != nil {
			return nil, err
		}
	}
	return NewScriptedLLMFromScenario(scenario, opts...), nil
}

// NewScriptedLLMFromScenario creates a ScriptedLLM from a loaded scenario.
func NewScriptedLLMFromScenario(scenario *Scenario, opts ...ScriptedOption) *ScriptedLLM {
	m := &ScriptedLLM{
		scenario: scenario,
		delay:    time.Duration(scenario.Settings.ThinkingDelayMs) * time.Millisecond,
		logger:   logging.GetLogger("agent.model.scripted"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the model identifier.
func (m *ScriptedLLM) Name() string {
	return "mock:" + m.scenario.Name
}

// GenerateContent implements model.LLM.
func (m *ScriptedLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		if m.delay > 0 {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			case <-time.After(m.delay):
			}
		}

		system := systemText(req.Config)
		content := requestText(req)
		declared := declaredTools(req.Config)

		script := m.scenario.scriptFor(system + "\n" + content)
		if script == nil {
			yield(nil, fmt.Errorf("scenario %s has no script for this request", m.scenario.Name))
			return
		}

		step := script.Steps[len(script.Steps)-1]
		if turn := modelTurns(req); turn < len(script.Steps) {
			step = script.Steps[turn]
		}
		if step.Error != "" {
			yield(nil, errors.New(step.Error))
			return
		}

		resp := m.buildResponse(step, declared)
		m.record(script.Match, declared, content, resp)
		yield(resp, nil)
	}
}

// buildResponse converts a step into a model response. Calls to tools that were
// not offered in the request are dropped, as a real model cannot make them.
func (m *ScriptedLLM) buildResponse(step ScenarioStep, declared []string) *model.LLMResponse {
	parts := make([]*genai.Part, 0, 1+len(step.ToolCalls))
	if step.Text != "" {
		parts = append(parts, &genai.Part{Text: step.Text})
	}

	for i, tc := range step.ToolCalls {
		if !contains(declared, tc.Name) {
			m.logger.Warn("Dropping call to undeclared tool %s", tc.Name)
			continue
		}
		args := tc.Args
		if args == nil {
			args = map[string]any{}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   fmt.Sprintf("scripted_call_%d", i),
				Name: tc.Name,
				Args: args,
			},
		})
	}

	if len(parts) == 0 {
		parts = append(parts, &genai.Part{Text: "Done."})
	}

	// #nosec G115 -- rough estimates, far below int32 range
	return &model.LLMResponse{
		Content:      &genai.Content{Role: "model", Parts: parts},
		FinishReason: genai.FinishReasonStop,
		TurnComplete: true,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: int32(len(step.Text) / 4),
			TotalTokenCount:      int32(100 + len(step.Text)/4),
		},
	}
}

func (m *ScriptedLLM) record(script string, declared []string, request string, resp *model.LLMResponse) {
	entry := ConversationEntry{
		Timestamp:     time.Now(),
		Script:        script,
		DeclaredTools: declared,
		Request:       truncateString(request, 200),
	}
	var texts []string
	for _, part := range resp.Content.Parts {
		if part.Text != "" {
			texts = append(texts, truncateString(part.Text, 100))
		}
		if part.FunctionCall != nil {
			entry.ToolCalls = append(entry.ToolCalls, part.FunctionCall.Name)
		}
	}
	entry.Response = strings.Join(texts, " | ")

	m.mu.Lock()
	m.log = append(m.log, entry)
	m.mu.Unlock()
}

// ConversationLog returns every recorded model call.
func (m *ScriptedLLM) ConversationLog() []ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConversationEntry(nil), m.log...)
}

// requestText flattens the request contents for matching and logging.
func requestText(req *model.LLMRequest) string {
	var parts []string
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
			if part.FunctionResponse != nil {
				body, _ := json.Marshal(part.FunctionResponse.Response)
				parts = append(parts, fmt.Sprintf("[tool_result:%s] %s", part.FunctionResponse.Name, body))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func modelTurns(req *model.LLMRequest) int {
	n := 0
	for _, content := range req.Contents {
		if content != nil && content.Role == "model" {
			n++
		}
	}
	return n
}

// declaredTools lists the function names the model may call. None are callable
// when function calling is disabled.
func declaredTools(cfg *genai.GenerateContentConfig) []string {
	if cfg == nil || functionCallingDisabled(cfg) {
		return nil
	}
	var names []string
	for _, t := range cfg.Tools {
		if t == nil {
			continue
		}
		for _, fn := range t.FunctionDeclarations {
			if fn != nil {
				names = append(names, fn.Name)
			}
		}
	}
	return names
}

func functionCallingDisabled(cfg *genai.GenerateContentConfig) bool {
	return cfg != nil && cfg.ToolConfig != nil && cfg.ToolConfig.FunctionCallingConfig != nil &&
		cfg.ToolConfig.FunctionCallingConfig.Mode == genai.FunctionCallingConfigModeNone
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ model.LLM = (*ScriptedLLM)(nil)
