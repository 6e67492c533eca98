// Package pipeline runs shipment batches through ordered stages that narrow
// the in-flight items and record per-item outcomes in an Artifacts accumulator.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/labelbridge/internal/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Item is one in-flight batch entry.
type Item[R any] struct {
	Index   string
	Request R
}

// Stage is one step of a pipeline. It returns the items that continue to the
// next stage. Item faults are recorded in the accumulator; a returned error
// aborts the run.
type Stage[R, A any] interface {
	Name() string
	Execute(ctx context.Context, items []Item[R], run A) ([]Item[R], error)
}

// Pipeline executes its stages in order.
type Pipeline[R, A any] struct {
	name    string
	stages  []Stage[R, A]
	logger  *otelzap.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// New creates a pipeline. A nil tracer uses the global tracer provider.
func New[R, A any](name string, logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics, stages ...Stage[R, A]) *Pipeline[R, A] {
	if tracer == nil {
		tracer = otel.Tracer("labelbridge/pipeline")
	}
	return &Pipeline[R, A]{
		name:    name,
		stages:  stages,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
	}
}

// Name returns the pipeline name.
func (p *Pipeline[R, A]) Name() string {
	return p.name
}

// Run passes items through all stages. Every stage runs, even once no items
// are left, so the final stage can convert recorded faults into results.
func (p *Pipeline[R, A]) Run(ctx context.Context, storeID int, items []Item[R], run A) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+p.name,
		trace.WithAttributes(
			attribute.Int("store_id", storeID),
			attribute.Int("items", len(items)),
		))
	defer span.End()

	totalStart := time.Now()
	for _, stage := range p.stages {
		in := len(items)
		start := time.Now()

		stageCtx, stageSpan := p.tracer.Start(ctx, "stage."+stage.Name(),
			trace.WithAttributes(
				attribute.String("stage", stage.Name()),
				attribute.Int("store_id", storeID),
				attribute.Int("in", in),
			))

		out, err := stage.Execute(stageCtx, items, run)
		duration := time.Since(start)
		p.metrics.RecordStage(p.name, stage.Name(), duration.Seconds())

		if err != nil {
			stageSpan.RecordError(err)
			stageSpan.SetStatus(codes.Error, err.Error())
			stageSpan.End()
			span.SetStatus(codes.Error, err.Error())

			p.logger.Ctx(ctx).Error("Pipeline stage failed",
				zap.String("pipeline", p.name),
				zap.String("stage", stage.Name()),
				zap.Int("store_id", storeID),
				zap.Error(err),
			)
			return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}

		stageSpan.SetAttributes(attribute.Int("out", len(out)))
		stageSpan.End()

		p.logger.Ctx(ctx).Debug("Pipeline stage completed",
			zap.String("pipeline", p.name),
			zap.String("stage", stage.Name()),
			zap.Int("store_id", storeID),
			zap.Int("in", in),
			zap.Int("out", len(out)),
			zap.Duration("duration", duration),
		)
		items = out
	}

	p.logger.Ctx(ctx).Debug("Pipeline finished",
		zap.String("pipeline", p.name),
		zap.Int("store_id", storeID),
		zap.Duration("duration", time.Since(totalStart)),
	)
	return nil
}
