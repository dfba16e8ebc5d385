package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const testScenario = `
name: test
scripts:
  - match: Travel Logistics Expert
    steps:
      - tool_calls:
          - name: search_web
            args: {query: visa}
      - text: RESEARCH_TEXT
  - match: Travel Itinerary Planner
    steps:
      - tool_calls:
          - name: search_web
            args: {query: sneaky}
        text: ITINERARY
  - match: broken
    steps:
      - error: quota exceeded
  - steps:
      - text: fallback
`

func request(system string, tools []string, contents ...*genai.Content) *model.LLMRequest {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, name := range tools {
			decls = append(decls, &genai.FunctionDeclaration{Name: name})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return &model.LLMRequest{Contents: contents, Config: cfg}
}

func userText(s string) *genai.Content {
	return &genai.Content{Role: "user", Parts: []*genai.Part{{Text: s}}}
}

func generate(t *testing.T, llm model.LLM, req *model.LLMRequest) (*model.LLMResponse, error) {
	t.Helper()
	var resp *model.LLMResponse
	var err error
	for r, e := range llm.GenerateContent(context.Background(), req, false) {
		resp, err = r, e
	}
	return resp, err
}

func newTestLLM(t *testing.T) *ScriptedLLM {
	t.Helper()
	scenario, err := ParseScenario([]byte(testScenario))
	require.NoError(t, err)
	return NewScriptedLLMFromScenario(scenario)
}

func TestScriptedLLM_ReplaysStepsPerTurn(t *testing.T) {
	llm := newTestLLM(t)
	system := "You are a Travel Logistics Expert."

	resp, err := generate(t, llm, request(system, []string{"search_web"}, userText("research Tokyo")))
	require.NoError(t, err)
	require.Len(t, resp.Content.Parts, 1)
	call := resp.Content.Parts[0].FunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "search_web", call.Name)
	assert.Equal(t, "visa", call.Args["query"])

	second := request(system, []string{"search_web"},
		userText("research Tokyo"),
		&genai.Content{Role: "model", Parts: resp.Content.Parts},
		&genai.Content{Role: "user", Parts: []*genai.Part{{
			FunctionResponse: &genai.FunctionResponse{Name: "search_web", Response: map[string]any{"result": "ok"}},
		}}},
	)
	resp, err = generate(t, llm, second)
	require.NoError(t, err)
	assert.Equal(t, "RESEARCH_TEXT", resp.Content.Parts[0].Text)

	log := llm.ConversationLog()
	require.Len(t, log, 2)
	assert.Equal(t, []string{"search_web"}, log[0].ToolCalls)
	assert.Contains(t, log[1].Request, "[tool_result:search_web]")
}

func TestScriptedLLM_DropsUndeclaredToolCalls(t *testing.T) {
	llm := newTestLLM(t)

	resp, err := generate(t, llm, request("Travel Itinerary Planner", nil, userText("plan")))
	require.NoError(t, err)
	require.Len(t, resp.Content.Parts, 1)
	assert.Equal(t, "ITINERARY", resp.Content.Parts[0].Text)
	assert.Nil(t, resp.Content.Parts[0].FunctionCall)

	log := llm.ConversationLog()
	require.Len(t, log, 1)
	assert.Empty(t, log[0].DeclaredTools)
	assert.Empty(t, log[0].ToolCalls)
}

func TestScriptedLLM_FunctionCallingDisabled(t *testing.T) {
	llm := newTestLLM(t)

	req := request("Travel Itinerary Planner", []string{"search_web"}, userText("plan"))
	req.Config.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone},
	}

	resp, err := generate(t, llm, req)
	require.NoError(t, err)
	require.Len(t, resp.Content.Parts, 1)
	assert.Equal(t, "ITINERARY", resp.Content.Parts[0].Text)

	log := llm.ConversationLog()
	require.Len(t, log, 1)
	assert.Empty(t, log[0].DeclaredTools)
	assert.Empty(t, log[0].ToolCalls)
}

func TestScriptedLLM_ErrorStep(t *testing.T) {
	llm := newTestLLM(t)
	_, err := generate(t, llm, request("broken agent", nil, userText("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestScriptedLLM_FallbackScriptAndLastStepRepeats(t *testing.T) {
	llm := newTestLLM(t)
	req := request("someone else", nil,
		userText("a"),
		&genai.Content{Role: "model", Parts: []*genai.Part{{Text: "b"}}},
		userText("c"),
	)
	resp, err := generate(t, llm, req)
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content.Parts[0].Text)
	assert.Equal(t, "mock:test", llm.Name())
}

func TestScriptedLLM_CanceledDuringDelay(t *testing.T) {
	llm := NewScriptedLLMFromScenario(DefaultScenario(), WithDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var err error
	for _, e := range llm.GenerateContent(ctx, request("x", nil, userText("y")), false) {
		err = e
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultScenario(t *testing.T) {
	s := DefaultScenario()
	assert.Equal(t, "default", s.Name)
	assert.NotNil(t, s.scriptFor("You are a Travel Logistics Expert"))
	assert.Equal(t, "Local City Guide", s.scriptFor("role: local city guide").Match)
	assert.Equal(t, "", s.scriptFor("unknown").Match)
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0600))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Len(t, s.Scripts, 4)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no name", "scripts: [{steps: [{text: a}]}]", "name is required"},
		{"no scripts", "name: x", "at least one script"},
		{"empty steps", "name: x\nscripts: [{match: a, steps: []}]", "at least one step"},
		{"catch-all not last", "name: x\nscripts: [{steps: [{text: a}]}, {match: b, steps: [{text: b}]}]", "only the last script"},
		{"empty step", "name: x\nscripts: [{steps: [{}]}]", "must have text"},
		{"unnamed tool", "name: x\nscripts: [{steps: [{tool_calls: [{args: {}}]}]}]", "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
