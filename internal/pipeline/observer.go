package pipeline

import (
	"time"
)

// EventType identifies a pipeline event.
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventStageFailed    EventType = "stage_failed"
	EventRunCompleted   EventType = "run_completed"
	EventRunFailed      EventType = "run_failed"
)

// Event describes progress of a run.
type Event struct {
	Type  EventType
	RunID string

	// Stage is empty for run-level events.
	Stage StageID

	// Index is the zero-based stage position; Total is the number of stages.
	Index int
	Total int

	// Text is the stage output on EventStageCompleted and the request summary
	// on EventRunStarted.
	Text string

	Err      error
	Duration time.Duration
}

// Observer receives events. In parallel mode OnEvent is called from several
// goroutines and must be safe for concurrent use.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// Observers fans events out to several observers in order.
type Observers []Observer

// OnEvent implements Observer.
func (o Observers) OnEvent(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEvent(e)
		}
	}
}
