package pipeline

import "context"

// GenerateRequest is everything a generator needs for one stage.
type GenerateRequest struct {
	RunID   string
	Stage   StageID
	Agent   Persona
	Tools   []string
	Task    Task
	Context Context
}

// Generator produces the text for a stage. Implementations may call tools up
// to the persona's iteration bound.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
