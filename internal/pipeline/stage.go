// Package pipeline runs a declarative list of LLM stages in dependency order and
// hands each stage the text produced by the stages it depends on.
package pipeline

import (
	"github.com/moolen/bonvoyage/internal/trip"
)

// StageID names a stage. It is also the label used in metrics, logs and traces.
type StageID string

// Persona is the role description handed to the generation capability. It is
// configuration data only.
type Persona struct {
	// Name is a short identifier usable as an agent name ("research_agent").
	Name string `json:"name" yaml:"name"`

	Role      string `json:"role" yaml:"role"`
	Goal      string `json:"goal" yaml:"goal"`
	Backstory string `json:"backstory" yaml:"backstory"`

	// MaxIterations bounds model calls for one stage, tool rounds included.
	// Zero means the generator's default.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// Task is the work description for one stage.
type Task struct {
	Description    string
	ExpectedOutput string
}

// Stage declares one unit of the pipeline.
type Stage struct {
	ID    StageID
	Agent Persona

	// Tools lists the capabilities the generator may expose to the model for
	// this stage. A stage with no tools gets none, even if the generator has
	// them available.
	Tools []string

	// DependsOn lists the stages whose output this stage reads, in the order
	// they appear in its Context. Each must be declared earlier in the list.
	DependsOn []StageID

	// Task builds the task description from the trip request.
	Task func(req trip.Request) Task
}

// StageResult is the output of one stage.
type StageResult struct {
	Stage StageID `json:"stage"`
	Text  string  `json:"text"`
}

// Context is the ordered list of prior results visible to a stage.
type Context []StageResult

// Texts returns the result texts in order.
func (c Context) Texts() []string {
	texts := make([]string, len(c))
	for i, r := range c {
		texts[i] = r.Text
	}
	return texts
}
