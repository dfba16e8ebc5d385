package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/moolen/bonvoyage/internal/metrics"
	"github.com/moolen/bonvoyage/internal/trip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Config configures an Executor.
type Config struct {
	// Parallel runs stages whose dependencies are satisfied concurrently.
	// Otherwise stages run one at a time in list order.
	Parallel bool

	// Observer receives events for every run. Optional.
	Observer Observer

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string

	// Final is the output of the last stage in the list.
	Final StageResult

	// Stages holds every stage output in list order.
	Stages []StageResult

	Duration time.Duration
}

// Executor runs a fixed stage list. It is safe for concurrent use; runs share
// nothing but the generator.
type Executor struct {
	stages    []Stage
	index     map[StageID]int
	generator Generator
	parallel  bool
	observer  Observer
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *logging.Logger
}

// NewExecutor validates the stage list and returns an executor for it.
//
// Validation:
// - at least one stage
// - stage IDs are non-empty and unique
// - every dependency refers to a stage declared earlier in the list
// - every stage has a task builder
//
// Because dependencies must point backwards the list is already in topological
// order and cannot contain cycles.
func NewExecutor(generator Generator, stages []Stage, cfg Config) (*Executor, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("at least one stage is required")
	}

	index := make(map[StageID]int, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("stage %d has an empty id", i)
		}
		if _, dup := index[s.ID]; dup {
			return nil, fmt.Errorf("stage %s is declared twice", s.ID)
		}
		if s.Task == nil {
			return nil, fmt.Errorf("stage %s has no task builder", s.ID)
		}

		seen := make(map[StageID]bool, len(s.DependsOn))
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return nil, fmt.Errorf("stage %s depends on itself", s.ID)
			}
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on %s, which is not declared before it", s.ID, dep)
			}
			if seen[dep] {
				return nil, fmt.Errorf("stage %s lists dependency %s twice", s.ID, dep)
			}
			seen[dep] = true
		}
		index[s.ID] = i
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/moolen/bonvoyage/internal/pipeline")
	}

	owned := make([]Stage, len(stages))
	copy(owned, stages)

	return &Executor{
		stages:    owned,
		index:     index,
		generator: generator,
		parallel:  cfg.Parallel,
		observer:  cfg.Observer,
		metrics:   cfg.Metrics,
		tracer:    tracer,
		logger:    logging.GetLogger("pipeline"),
	}, nil
}

// Stages returns a copy of the stage list.
func (e *Executor) Stages() []Stage {
	out := make([]Stage, len(e.stages))
	copy(out, e.stages)
	return out
}

// Run validates req and executes every stage. It blocks until the last stage
// finishes or the first failure. A *trip.ValidationError means no stage ran; any
// stage failure is returned as a single *StageError and later stages are not
// started. Extra observers receive this run's events only.
func (e *Executor) Run(ctx context.Context, req trip.Request, observers ...Observer) (*Result, error) {
	if err := req.Validate(); err != nil {
		e.metrics.ObserveRun(metrics.OutcomeInvalid)
		return nil, err
	}

	run := &run{
		executor: e,
		id:       uuid.NewString(),
		req:      req,
		results:  make([]*StageResult, len(e.stages)),
		observer: append(Observers{e.observer}, observers...),
	}

	ctx, span := e.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("run.id", run.id),
			attribute.String("trip.destination", req.Destination()),
			attribute.Int("pipeline.stages", len(e.stages)),
			attribute.Bool("pipeline.parallel", e.parallel),
		),
	)
	defer span.End()

	logger := e.logger.WithContext(ctx).WithField("run_id", run.id)
	logger.Info("Starting plan for %s", req)
	run.emit(Event{Type: EventRunStarted, Text: req.String()})

	start := time.Now()
	var err error
	if e.parallel {
		err = run.executeParallel(ctx)
	} else {
		err = run.executeSequential(ctx)
	}
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		if errors.Is(err, context.Canceled) {
			e.metrics.ObserveRun(metrics.OutcomeCanceled)
		} else {
			e.metrics.ObserveRun(metrics.OutcomeFailed)
		}
		logger.ErrorWithErr("Plan failed", err)
		run.emit(Event{Type: EventRunFailed, Err: err, Duration: elapsed})
		return nil, err
	}

	stages := make([]StageResult, len(run.results))
	for i, r := range run.results {
		stages[i] = *r
	}

	span.SetStatus(codes.Ok, "pipeline completed")
	e.metrics.ObserveRun(metrics.OutcomeSuccess)
	logger.Info("Plan completed in %v", elapsed.Round(time.Millisecond))
	run.emit(Event{Type: EventRunCompleted, Duration: elapsed})

	return &Result{
		RunID:    run.id,
		Final:    stages[len(stages)-1],
		Stages:   stages,
		Duration: elapsed,
	}, nil
}

// run is the state of one Executor.Run call.
type run struct {
	executor *Executor
	id       string
	req      trip.Request
	observer Observer

	mu      sync.Mutex
	results []*StageResult
}

func (r *run) emit(ev Event) {
	ev.RunID = r.id
	ev.Total = len(r.executor.stages)
	r.observer.OnEvent(ev)
}

func (r *run) executeSequential(ctx context.Context) error {
	for i := range r.executor.stages {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: r.executor.stages[i].ID, Err: err}
		}
		if err := r.executeStage(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// executeParallel starts one goroutine per stage; each waits for its
// dependencies to finish. The first failure cancels the group, so stages that
// are still waiting never start.
func (r *run) executeParallel(ctx context.Context) error {
	stages := r.executor.stages
	done := make([]chan struct{}, len(stages))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range stages {
		g.Go(func() error {
			for _, dep := range stages[i].DependsOn {
				select {
				case <-done[r.executor.index[dep]]:
				case <-gctx.Done():
					return &StageError{Stage: stages[i].ID, Err: gctx.Err()}
				}
			}
			if err := r.executeStage(gctx, i); err != nil {
				return err
			}
			close(done[i])
			return nil
		})
	}
	return g.Wait()
}

// contextFor collects the outputs of the stage's dependencies in declared
// order. The results are copied so a stage cannot alter what others see.
func (r *run) contextFor(stage Stage) Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	pctx := make(Context, 0, len(stage.DependsOn))
	for _, dep := range stage.DependsOn {
		pctx = append(pctx, *r.results[r.executor.index[dep]])
	}
	return pctx
}

func (r *run) executeStage(ctx context.Context, i int) error {
	e := r.executor
	stage := e.stages[i]

	ctx, span := e.tracer.Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("stage.id", string(stage.ID)),
			attribute.String("stage.agent", stage.Agent.Name),
			attribute.Int("stage.tools", len(stage.Tools)),
			attribute.Int("stage.context", len(stage.DependsOn)),
		),
	)
	defer span.End()

	logger := e.logger.WithContext(ctx).WithFields(
		logging.Field("run_id", r.id),
		logging.Field("stage", string(stage.ID)),
	)

	req := GenerateRequest{
		RunID:   r.id,
		Stage:   stage.ID,
		Agent:   stage.Agent,
		Tools:   append([]string(nil), stage.Tools...),
		Task:    stage.Task(r.req),
		Context: r.contextFor(stage),
	}

	logger.Debug("Stage started with %d context entries", len(req.Context))
	r.emit(Event{Type: EventStageStarted, Stage: stage.ID, Index: i})

	start := time.Now()
	text, err := e.generator.Generate(ctx, req)
	elapsed := time.Since(start)
	e.metrics.ObserveStage(string(stage.ID), elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stage failed")
		logger.Warn("Stage failed after %v: %v", elapsed.Round(time.Millisecond), err)
		r.emit(Event{Type: EventStageFailed, Stage: stage.ID, Index: i, Err: err, Duration: elapsed})
		return &StageError{Stage: stage.ID, Err: err}
	}

	r.mu.Lock()
	r.results[i] = &StageResult{Stage: stage.ID, Text: text}
	r.mu.Unlock()

	span.SetAttributes(attribute.Int("stage.output_chars", len(text)))
	logger.Info("Stage completed in %v (%d chars)", elapsed.Round(time.Millisecond), len(text))
	r.emit(Event{Type: EventStageCompleted, Stage: stage.ID, Index: i, Text: text, Duration: elapsed})
	return nil
}
