package travel

import (
	"context"
	"fmt"

	adkmodel "google.golang.org/adk/model"

	"github.com/moolen/bonvoyage/internal/agent"
	"github.com/moolen/bonvoyage/internal/agent/audit"
	"github.com/moolen/bonvoyage/internal/agent/model"
	"github.com/moolen/bonvoyage/internal/agent/tools"
	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/search"
	"github.com/moolen/bonvoyage/internal/trip"
)

// Options wires a Planner. Only Config is required.
type Options struct {
	Config *config.Config

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Audit receives tool calls, model calls and pipeline events. Optional.
	Audit *audit.Logger

	// Model overrides the model selected by Config.LLM.
	Model adkmodel.LLM

	// Searcher overrides the DuckDuckGo client.
	Searcher search.Searcher

	// Generator overrides the ADK generator entirely. Model and Searcher are
	// ignored when it is set.
	Generator pipeline.Generator
}

// Planner turns a trip request into an itinerary.
type Planner struct {
	executor *pipeline.Executor
	model    string
	logger   *logging.Logger
}

// NewPlanner builds the generation stack described by opts.Config. A missing
// API key for the selected provider is a *config.ConfigurationError.
func NewPlanner(ctx context.Context, opts Options) (*Planner, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("travel: config is required")
	}

	generator := opts.Generator
	modelName := "custom"
	if generator == nil {
		llm := opts.Model
		if llm == nil {
			var err error
			if llm, err = model.New(ctx, cfg.LLM); err != nil {
				return nil, err
			}
		}
		modelName = llm.Name()

		searcher := opts.Searcher
		if searcher == nil {
			searcher = search.NewDuckDuckGo(search.DuckDuckGoConfig{
				BaseURL:       cfg.Search.BaseURL,
				Timeout:       cfg.Search.Timeout,
				RatePerSecond: cfg.Search.RatePerSecond,
			})
		}

		registry, err := tools.NewRegistry(tools.Dependencies{
			Search: search.NewTool(searcher, search.ToolConfig{
				MaxResults:   cfg.Search.MaxResults,
				SnippetLimit: cfg.Search.SnippetLimit,
				Metrics:      opts.Metrics,
			}),
		})
		if err != nil {
			return nil, err
		}

		if generator, err = agent.NewGenerator(agent.Config{
			Model:   llm,
			Tools:   registry,
			Metrics: opts.Metrics,
			Audit:   opts.Audit,
		}); err != nil {
			return nil, err
		}
	}

	var observer pipeline.Observer
	if opts.Audit != nil {
		observer = opts.Audit
	}

	executor, err := pipeline.NewExecutor(generator, Stages(cfg.Agents), pipeline.Config{
		Parallel: cfg.Pipeline.Parallel,
		Observer: observer,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Planner{
		executor: executor,
		model:    modelName,
		logger:   logging.GetLogger("travel"),
	}, nil
}

// Plan runs the pipeline for req. observers receive progress for this run only.
func (p *Planner) Plan(ctx context.Context, req trip.Request, observers ...pipeline.Observer) (*pipeline.Result, error) {
	result, err := p.executor.Run(ctx, req, observers...)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Planned %s in %s", req, result.Duration)
	return result, nil
}

// Model names the model the planner generates with.
func (p *Planner) Model() string {
	return p.model
}

// Stages returns the stage list in declaration order.
func (p *Planner) Stages() []pipeline.Stage {
	return p.executor.Stages()
}

// StageCount is the number of stages in a run.
func (p *Planner) StageCount() int {
	return len(p.executor.Stages())
}
