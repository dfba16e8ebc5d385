// Package agent runs pipeline stages as Google ADK agents. Each Generate call
// builds a fresh single-agent runner with the stage's persona, tools and
// iteration bound, so stages never share conversation state.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/moolen/bonvoyage/internal/agent/audit"
	"github.com/moolen/bonvoyage/internal/agent/tools"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/pipeline"
)

const (
	// AppName is the ADK application name.
	AppName = "bonvoyage"

	// DefaultUserID is the ADK user every session is created for.
	DefaultUserID = "planner"
)

// ErrEmptyOutput is returned when an agent finished without any final text.
var ErrEmptyOutput = errors.New("agent produced no output")

// Config contains the generator dependencies.
type Config struct {
	// Model is required.
	Model model.LLM

	// Tools resolves the tool names a stage declares. Nil means no tools exist.
	Tools *tools.Registry

	// Metrics and Audit are optional.
	Metrics *metrics.Metrics
	Audit   *audit.Logger
}

// Generator implements pipeline.Generator with ADK llm agents.
type Generator struct {
	model    model.LLM
	tools    *tools.Registry
	metrics  *metrics.Metrics
	audit    *audit.Logger
	sessions adksession.Service
	logger   *logging.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Model == nil {
		return nil, errors.New("agent: model is required")
	}
	registry := cfg.Tools
	if registry == nil {
		var err error
		if registry, err = tools.NewRegistry(tools.Dependencies{}); err != nil {
			return nil, err
		}
	}
	return &Generator{
		model:    cfg.Model,
		tools:    registry,
		metrics:  cfg.Metrics,
		audit:    cfg.Audit,
		sessions: adksession.InMemoryService(),
		logger:   logging.GetLogger("agent"),
	}, nil
}

// Generate runs one stage agent to completion and returns its final text.
func (g *Generator) Generate(ctx context.Context, req pipeline.GenerateRequest) (string, error) {
	stage := string(req.Stage)
	logger := g.logger.WithContext(ctx).WithFields(
		logging.Field("run_id", req.RunID),
		logging.Field("stage", stage),
	)

	stageTools, err := g.tools.Resolve(req.Tools)
	if err != nil {
		return "", err
	}

	llm := newBoundedLLM(g.model, req.Agent.MaxIterations, req.RunID, stage, g.metrics, g.audit)

	stageAgent, err := llmagent.New(llmagent.Config{
		Name:            agentName(req),
		Description:     req.Agent.Goal,
		Model:           llm,
		Instruction:     Instruction(req.Agent),
		Tools:           stageTools,
		IncludeContents: llmagent.IncludeContentsDefault,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create agent: %w", err)
	}

	r, err := runner.New(runner.Config{
		AppName:        AppName,
		Agent:          stageAgent,
		SessionService: g.sessions,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create ADK runner: %w", err)
	}

	sessionID := uuid.NewString()
	if _, err := g.sessions.Create(ctx, &adksession.CreateRequest{
		AppName:   AppName,
		UserID:    DefaultUserID,
		SessionID: sessionID,
	}); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		_ = g.sessions.Delete(context.WithoutCancel(ctx), &adksession.DeleteRequest{
			AppName:   AppName,
			UserID:    DefaultUserID,
			SessionID: sessionID,
		})
	}()

	logger.Debug("Running %s with %d tools", agentName(req), len(stageTools))

	userContent := genai.NewContentFromText(UserMessage(req), genai.RoleUser)
	runConfig := agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	}

	var final string
	toolStartTimes := make(map[string]time.Time)
	for event, err := range r.Run(ctx, DefaultUserID, sessionID, userContent, runConfig) {
		if err != nil {
			return "", err
		}
		if event == nil || event.Content == nil {
			continue
		}

		for _, part := range event.Content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.FunctionCall != nil:
				key := toolKey(part.FunctionCall.ID, part.FunctionCall.Name)
				toolStartTimes[key] = time.Now()
				logger.Debug("Tool call %s", part.FunctionCall.Name)
				_ = g.audit.LogToolStart(req.RunID, stage, part.FunctionCall.Name, part.FunctionCall.Args)
			case part.FunctionResponse != nil:
				key := toolKey(part.FunctionResponse.ID, part.FunctionResponse.Name)
				var elapsed time.Duration
				if start, ok := toolStartTimes[key]; ok {
					elapsed = time.Since(start)
					delete(toolStartTimes, key)
				}
				_ = g.audit.LogToolComplete(req.RunID, stage, part.FunctionResponse.Name, elapsed, part.FunctionResponse.Response)
			}
		}

		if event.IsFinalResponse() {
			if text := finalText(event.Content); strings.TrimSpace(text) != "" {
				final = text
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if final == "" {
		return "", ErrEmptyOutput
	}

	logger.Debug("Finished after %d model calls", llm.Calls())
	return final, nil
}

func toolKey(id, name string) string {
	if id != "" {
		return id
	}
	return name
}

// finalText joins the visible text parts of a response. The text is returned
// as the model wrote it.
func finalText(content *genai.Content) string {
	var parts []string
	for _, part := range content.Parts {
		if part != nil && !part.Thought && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "")
}

var _ pipeline.Generator = (*Generator)(nil)
