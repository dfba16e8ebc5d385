// Package audit records planner runs to a JSONL file: run and stage boundaries,
// every model call with its token usage, and every tool call with its result.
// The log is meant for debugging prompts and replaying what an agent saw.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/moolen/bonvoyage/internal/pipeline"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeRunStart marks the start of a planner run.
	EventTypeRunStart EventType = "run_start"
	// EventTypeStageStart marks when a stage's agent becomes active.
	EventTypeStageStart EventType = "stage_start"
	// EventTypeLLMRequest logs each model call with token usage.
	EventTypeLLMRequest EventType = "llm_request"
	// EventTypeToolStart marks the start of a tool call.
	EventTypeToolStart EventType = "tool_start"
	// EventTypeToolComplete marks the completion of a tool call.
	EventTypeToolComplete EventType = "tool_complete"
	// EventTypeStageComplete marks a stage that produced its text.
	EventTypeStageComplete EventType = "stage_complete"
	// EventTypeError marks a stage or run failure.
	EventTypeError EventType = "error"
	// EventTypeRunComplete marks the end of a run, successful or not.
	EventTypeRunComplete EventType = "run_complete"
)

// maxTextLen bounds the size of texts copied into the log.
const maxTextLen = 2000

// Event represents a single audit log event.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	Stage     string                 `json:"stage,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Logger writes audit events as JSON lines. A nil *Logger discards everything,
// so callers never need to check whether auditing is enabled.
type Logger struct {
	closer io.Closer
	writer *bufio.Writer
	mutex  sync.Mutex
	now    func() time.Time
}

// NewLogger creates a new audit logger that writes to the specified file path.
// If the file exists, new events are appended.
func NewLogger(filePath string) (*Logger, error) {
	// #nosec G304 -- Audit log path is intentionally configurable by user
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	l := NewWriterLogger(file)
	l.closer = file
	return l, nil
}

// NewWriterLogger creates an audit logger on an arbitrary writer. Close flushes
// but does not close w.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{
		writer: bufio.NewWriter(w),
		now:    time.Now,
	}
}

func (l *Logger) write(event Event) error {
	if l == nil {
		return nil
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	event.Timestamp = l.now()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately for crash safety
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// LogRunStart logs the start of a run.
func (l *Logger) LogRunStart(runID, request string) error {
	return l.write(Event{
		Type:  EventTypeRunStart,
		RunID: runID,
		Data:  map[string]interface{}{"request": request},
	})
}

// LogStageStart logs when a stage's agent becomes active.
func (l *Logger) LogStageStart(runID, stage string, index, total int) error {
	return l.write(Event{
		Type:  EventTypeStageStart,
		RunID: runID,
		Stage: stage,
		Data:  map[string]interface{}{"index": index, "total": total},
	})
}

// LogLLMRequest logs one model call.
func (l *Logger) LogLLMRequest(runID, stage, model string, inputTokens, outputTokens int, stopReason string) error {
	return l.write(Event{
		Type:  EventTypeLLMRequest,
		RunID: runID,
		Stage: stage,
		Data: map[string]interface{}{
			"model":         model,
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"stop_reason":   stopReason,
		},
	})
}

// LogToolStart logs the start of a tool call.
func (l *Logger) LogToolStart(runID, stage, toolName string, args map[string]interface{}) error {
	return l.write(Event{
		Type:  EventTypeToolStart,
		RunID: runID,
		Stage: stage,
		Data: map[string]interface{}{
			"tool_name": toolName,
			"args":      args,
		},
	})
}

// LogToolComplete logs the completion of a tool call.
func (l *Logger) LogToolComplete(runID, stage, toolName string, duration time.Duration, result interface{}) error {
	return l.write(Event{
		Type:  EventTypeToolComplete,
		RunID: runID,
		Stage: stage,
		Data: map[string]interface{}{
			"tool_name":   toolName,
			"duration_ms": duration.Milliseconds(),
			"result":      result,
		},
	})
}

// LogStageComplete logs a finished stage with a prefix of its text.
func (l *Logger) LogStageComplete(runID, stage string, duration time.Duration, text string) error {
	return l.write(Event{
		Type:  EventTypeStageComplete,
		RunID: runID,
		Stage: stage,
		Data: map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"text_length": len(text),
			"text":        truncateString(text, maxTextLen),
		},
	})
}

// LogError logs a failure. stage is empty for run-level errors.
func (l *Logger) LogError(runID, stage string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return l.write(Event{
		Type:  EventTypeError,
		RunID: runID,
		Stage: stage,
		Data:  map[string]interface{}{"error": msg},
	})
}

// LogRunComplete logs the end of a run.
func (l *Logger) LogRunComplete(runID string, duration time.Duration, success bool) error {
	return l.write(Event{
		Type:  EventTypeRunComplete,
		RunID: runID,
		Data: map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"success":     success,
		},
	})
}

// OnEvent records pipeline events, which makes a Logger a pipeline.Observer.
// Write errors are dropped; auditing never fails a run.
func (l *Logger) OnEvent(ev pipeline.Event) {
	if l == nil {
		return
	}
	stage := string(ev.Stage)
	switch ev.Type {
	case pipeline.EventRunStarted:
		_ = l.LogRunStart(ev.RunID, ev.Text)
	case pipeline.EventStageStarted:
		_ = l.LogStageStart(ev.RunID, stage, ev.Index, ev.Total)
	case pipeline.EventStageCompleted:
		_ = l.LogStageComplete(ev.RunID, stage, ev.Duration, ev.Text)
	case pipeline.EventStageFailed:
		_ = l.LogError(ev.RunID, stage, ev.Err)
	case pipeline.EventRunCompleted:
		_ = l.LogRunComplete(ev.RunID, ev.Duration, true)
	case pipeline.EventRunFailed:
		_ = l.LogError(ev.RunID, "", ev.Err)
		_ = l.LogRunComplete(ev.RunID, ev.Duration, false)
	}
}

// Close flushes pending writes and closes the underlying file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	var errs []error
	if err := l.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush audit log: %w", err))
	}
	if l.closer != nil {
		if err := l.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit log file: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing audit log: %v", errs)
	}
	return nil
}

var _ pipeline.Observer = (*Logger)(nil)

// truncateString truncates a string to maxLen bytes.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}
