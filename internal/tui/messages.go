// Package tui shows planner progress in the terminal using Bubble Tea and
// renders the finished itinerary as styled markdown.
package tui

import (
	"time"

	"github.com/moolen/bonvoyage/internal/pipeline"
)

// Status represents the current state of a step.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusCompleted
	StatusError
)

// StageStartedMsg is sent when a pipeline stage begins.
type StageStartedMsg struct {
	Stage pipeline.StageID
	Index int
	Total int
}

// StageCompletedMsg is sent when a stage produced its text.
type StageCompletedMsg struct {
	Stage    pipeline.StageID
	Duration time.Duration
}

// StageFailedMsg is sent when a stage failed. The run aborts after it.
type StageFailedMsg struct {
	Stage pipeline.StageID
	Err   error
}

// RunFinishedMsg is sent once the pipeline returned.
type RunFinishedMsg struct {
	Result *pipeline.Result
	Err    error
}
