package agent

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/moolen/bonvoyage/internal/agent/audit"
	"github.com/moolen/bonvoyage/internal/metrics"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultMaxIterations bounds model calls for a persona that sets none.
const DefaultMaxIterations = 15

// finalAnswerPrompt is appended to the last permitted model call.
const finalAnswerPrompt = "You have reached the maximum number of steps. Do not call any more tools. Provide your final answer now."

// IterationLimitError is returned when a stage keeps calling the model after
// its last permitted call.
type IterationLimitError struct {
	Stage string
	Limit int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("stage %s exceeded its limit of %d model calls", e.Stage, e.Limit)
}

// boundedLLM wraps a model for one stage run. Calls before the limit pass
// through. The call at the limit disables function calling and asks for the
// final answer. Calls after the limit fail.
type boundedLLM struct {
	inner   model.LLM
	limit   int
	calls   atomic.Int64
	runID   string
	stage   string
	metrics *metrics.Metrics
	audit   *audit.Logger
}

func newBoundedLLM(inner model.LLM, limit int, runID, stage string, m *metrics.Metrics, a *audit.Logger) *boundedLLM {
	if limit <= 0 {
		limit = DefaultMaxIterations
	}
	return &boundedLLM{inner: inner, limit: limit, runID: runID, stage: stage, metrics: m, audit: a}
}

func (b *boundedLLM) Name() string {
	return b.inner.Name()
}

// Calls returns the number of model calls made so far.
func (b *boundedLLM) Calls() int {
	return int(b.calls.Load())
}

func (b *boundedLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	n := int(b.calls.Add(1))
	if n > b.limit {
		return func(yield func(*model.LLMResponse, error) bool) {
			yield(nil, &IterationLimitError{Stage: b.stage, Limit: b.limit})
		}
	}
	if n == b.limit {
		req = finalAnswerRequest(req)
	}

	return func(yield func(*model.LLMResponse, error) bool) {
		for resp, err := range b.inner.GenerateContent(ctx, req, stream) {
			if err == nil && resp != nil {
				b.observe(resp)
			}
			if !yield(resp, err) {
				return
			}
		}
	}
}

func (b *boundedLLM) observe(resp *model.LLMResponse) {
	if resp.UsageMetadata == nil {
		return
	}
	in := int(resp.UsageMetadata.PromptTokenCount)
	out := int(resp.UsageMetadata.CandidatesTokenCount)
	b.metrics.ObserveTokens(b.stage, in, out)

	stopReason := "end_turn"
	if resp.Content != nil {
		for _, part := range resp.Content.Parts {
			if part != nil && part.FunctionCall != nil {
				stopReason = "tool_use"
				break
			}
		}
	}
	_ = b.audit.LogLLMRequest(b.runID, b.stage, b.inner.Name(), in, out, stopReason)
}

// finalAnswerRequest returns a copy of req with function calling disabled and
// a closing user turn. Tool declarations stay in place because the history may
// already hold tool calls and their results. The caller's request is not
// modified.
func finalAnswerRequest(req *model.LLMRequest) *model.LLMRequest {
	out := *req
	cfg := genai.GenerateContentConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}
	cfg.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone},
	}
	out.Config = &cfg
	out.Contents = append(append([]*genai.Content(nil), req.Contents...),
		genai.NewContentFromText(finalAnswerPrompt, genai.RoleUser))
	return &out
}

var _ model.LLM = (*boundedLLM)(nil)
