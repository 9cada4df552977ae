// Package blend runs the two-stage generation: the scent planner turns
// preferences into a Brief, the formula architect turns the Brief into recipes.
package blend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perfumepal/blender/internal/metrics"
	"github.com/perfumepal/blender/internal/services/llm"
	"github.com/perfumepal/blender/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// DefaultInvokeTimeout bounds each model call when no option overrides it.
const DefaultInvokeTimeout = 60 * time.Second

var tracer = telemetry.Tracer("github.com/perfumepal/blender/blend")

// Pipeline chains the planner and formulator stages. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	model         llm.Client
	invokeTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInvokeTimeout sets the deadline applied to each model call.
func WithInvokeTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.invokeTimeout = d
		}
	}
}

func NewPipeline(model llm.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:         model,
		invokeTimeout: DefaultInvokeTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes planner then formulator. Every failure is returned as a
// *WorkflowError and no partial result is produced.
func (p *Pipeline) Run(ctx context.Context, prefs Preferences) (result *RecipeSet, err error) {
	ctx, span := tracer.Start(ctx, "blend.Run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Blend workflow panicked", "panic", r)
			result = nil
			err = stageError(StageWorkflow, fmt.Errorf("%v", r))
		}

		status := "success"
		if err != nil {
			status = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.BlendRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}()

	slog.InfoContext(ctx, "Starting blend workflow", "style", prefs.Style, "strength", prefs.Strength)

	var brief *Brief
	if err := p.stage(ctx, StagePlanner, func(ctx context.Context) error {
		var err error
		brief, err = CreateBrief(ctx, p.model, prefs)
		return err
	}); err != nil {
		return nil, asWorkflowError(err)
	}

	var recipes *RecipeSet
	if err := p.stage(ctx, StageFormulator, func(ctx context.Context) error {
		var err error
		recipes, err = GenerateRecipes(ctx, p.model, brief, prefs.UserIngredients)
		return err
	}); err != nil {
		return nil, asWorkflowError(err)
	}

	slog.InfoContext(ctx, "Blend workflow completed", "recipes", len(recipes.Recipes))
	return recipes, nil
}

// stage runs fn under its own span and invocation deadline.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "blend.stage")
	defer span.End()
	span.SetAttributes(attribute.String("blend.stage", name))

	ctx, cancel := context.WithTimeout(ctx, p.invokeTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.BlendStageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("stage", name),
		attribute.String("status", status),
	))
	return err
}

func asWorkflowError(err error) *WorkflowError {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr
	}
	return stageError(StageWorkflow, err)
}
