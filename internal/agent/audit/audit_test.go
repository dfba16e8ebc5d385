package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moolen/bonvoyage/internal/pipeline"
)

func readEvents(t *testing.T, data []byte) []Event {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var events []Event
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Errorf("failed to unmarshal event: %v", err)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("error scanning log: %v", err)
	}
	return events
}

func TestLogger_WriteEvents(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	if err := logger.LogRunStart("run-1", "Paris -> Tokyo"); err != nil {
		t.Errorf("LogRunStart failed: %v", err)
	}
	if err := logger.LogStageStart("run-1", "research", 0, 3); err != nil {
		t.Errorf("LogStageStart failed: %v", err)
	}
	if err := logger.LogLLMRequest("run-1", "research", "gemini-2.5-flash", 120, 30, "tool_use"); err != nil {
		t.Errorf("LogLLMRequest failed: %v", err)
	}
	if err := logger.LogToolStart("run-1", "research", "search_web", map[string]interface{}{"query": "Tokyo visa"}); err != nil {
		t.Errorf("LogToolStart failed: %v", err)
	}
	if err := logger.LogToolComplete("run-1", "research", "search_web", 100*time.Millisecond, "1. hit"); err != nil {
		t.Errorf("LogToolComplete failed: %v", err)
	}
	if err := logger.LogStageComplete("run-1", "research", time.Second, "REPORT"); err != nil {
		t.Errorf("LogStageComplete failed: %v", err)
	}
	if err := logger.LogError("run-1", "guide", errors.New("test error")); err != nil {
		t.Errorf("LogError failed: %v", err)
	}
	if err := logger.LogRunComplete("run-1", 5*time.Second, false); err != nil {
		t.Errorf("LogRunComplete failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	events := readEvents(t, data)

	expectedTypes := []EventType{
		EventTypeRunStart,
		EventTypeStageStart,
		EventTypeLLMRequest,
		EventTypeToolStart,
		EventTypeToolComplete,
		EventTypeStageComplete,
		EventTypeError,
		EventTypeRunComplete,
	}
	if len(events) != len(expectedTypes) {
		t.Fatalf("expected %d events, got %d", len(expectedTypes), len(events))
	}
	for i, expected := range expectedTypes {
		if events[i].Type != expected {
			t.Errorf("event %d: expected type %s, got %s", i, expected, events[i].Type)
		}
		if events[i].RunID != "run-1" {
			t.Errorf("event %d: expected run ID run-1, got %s", i, events[i].RunID)
		}
	}

	if events[0].Data["request"] != "Paris -> Tokyo" {
		t.Errorf("run start: expected request, got %v", events[0].Data["request"])
	}
	if events[2].Data["input_tokens"] != float64(120) {
		t.Errorf("llm request: expected 120 input tokens, got %v", events[2].Data["input_tokens"])
	}
	if events[3].Data["tool_name"] != "search_web" {
		t.Errorf("tool start: expected tool_name search_web, got %v", events[3].Data["tool_name"])
	}
	if events[6].Stage != "guide" || events[6].Data["error"] != "test error" {
		t.Errorf("error: unexpected event %+v", events[6])
	}
	if events[7].Data["success"] != false {
		t.Errorf("run complete: expected success false, got %v", events[7].Data["success"])
	}
}

func TestLogger_Append(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	for _, runID := range []string{"run-1", "run-2"} {
		logger, err := NewLogger(logPath)
		if err != nil {
			t.Fatalf("failed to create logger: %v", err)
		}
		if err := logger.LogRunStart(runID, "req"); err != nil {
			t.Errorf("LogRunStart failed: %v", err)
		}
		if err := logger.Close(); err != nil {
			t.Fatalf("failed to close logger: %v", err)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	events := readEvents(t, data)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].RunID != "run-1" || events[1].RunID != "run-2" {
		t.Errorf("unexpected run IDs: %s, %s", events[0].RunID, events[1].RunID)
	}
}

func TestLogger_ObservesPipelineEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	var obs pipeline.Observer = logger
	obs.OnEvent(pipeline.Event{Type: pipeline.EventRunStarted, RunID: "r", Text: "Paris -> Tokyo"})
	obs.OnEvent(pipeline.Event{Type: pipeline.EventStageStarted, RunID: "r", Stage: "research", Index: 0, Total: 3})
	obs.OnEvent(pipeline.Event{Type: pipeline.EventStageCompleted, RunID: "r", Stage: "research", Text: "REPORT"})
	obs.OnEvent(pipeline.Event{Type: pipeline.EventStageFailed, RunID: "r", Stage: "guide", Err: errors.New("boom")})
	obs.OnEvent(pipeline.Event{Type: pipeline.EventRunFailed, RunID: "r", Err: errors.New("boom")})

	events := readEvents(t, buf.Bytes())
	want := []EventType{
		EventTypeRunStart,
		EventTypeStageStart,
		EventTypeStageComplete,
		EventTypeError,
		EventTypeError,
		EventTypeRunComplete,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Errorf("event %d: expected %s, got %s", i, typ, events[i].Type)
		}
	}
	if events[2].Data["text"] != "REPORT" {
		t.Errorf("stage complete: expected text REPORT, got %v", events[2].Data["text"])
	}
	if events[4].Stage != "" {
		t.Errorf("run failure should have no stage, got %q", events[4].Stage)
	}
}

func TestLogger_NilIsNoop(t *testing.T) {
	var logger *Logger
	if err := logger.LogRunStart("r", "req"); err != nil {
		t.Errorf("expected nil logger to discard, got %v", err)
	}
	logger.OnEvent(pipeline.Event{Type: pipeline.EventRunStarted})
	if err := logger.Close(); err != nil {
		t.Errorf("expected nil close to succeed, got %v", err)
	}
}

func TestLogger_TruncatesStageText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	text := strings.Repeat("x", maxTextLen+10)
	if err := logger.LogStageComplete("r", "planning", time.Second, text); err != nil {
		t.Fatalf("LogStageComplete failed: %v", err)
	}

	events := readEvents(t, buf.Bytes())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got, _ := events[0].Data["text"].(string)
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Errorf("expected truncated text, got %d bytes", len(got))
	}
	if events[0].Data["text_length"] != float64(len(text)) {
		t.Errorf("expected full text length, got %v", events[0].Data["text_length"])
	}
}

func TestLogger_NewLoggerBadPath(t *testing.T) {
	_, err := NewLogger(filepath.Join(t.TempDir(), "missing", "audit.jsonl"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
