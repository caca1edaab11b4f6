package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

// PipelineObserver receives lifecycle callbacks from the explanation
// pipeline so tracing and metrics stay out of the service logic.
// Implementations must be safe for concurrent requests; per-request
// state travels in the context returned by Begin.
type PipelineObserver interface {
	// Begin is called once per request before any attribution method
	// runs. The returned context carries the request span.
	Begin(ctx context.Context, requestID string) context.Context

	// StageDone is called after each pipeline stage (attribution,
	// uncertainty, aggregation) with its wall time and outcome.
	StageDone(ctx context.Context, stage string, elapsed time.Duration, err error)

	// End is called once with the final payload, or with a nil payload
	// and the terminal error.
	End(ctx context.Context, payload *domain.ExplanationPayload, elapsed time.Duration, err error)
}

var _ PipelineObserver = (*OTelPipelineObserver)(nil)

// OTelPipelineObserver implements observability for the explanation
// pipeline using OpenTelemetry tracing. It creates a span per request,
// records per-stage events, and mirrors the headline results into the
// metrics collector.
type OTelPipelineObserver struct {
	metrics ports.MetricsCollector
}

// NewOTelPipelineObserver creates a new OpenTelemetry pipeline observer.
func NewOTelPipelineObserver(metrics ports.MetricsCollector) *OTelPipelineObserver {
	return &OTelPipelineObserver{metrics: metrics}
}

// Begin implements the PipelineObserver interface. It starts the
// request span and tags it with the request ID. The span rides the
// returned context until End.
func (o *OTelPipelineObserver) Begin(ctx context.Context, requestID string) context.Context {
	tracer := otel.Tracer("explain-pipeline")
	ctx, span := tracer.Start(ctx, "ExplainService.Explain")
	span.SetAttributes(attribute.String("request.id", requestID))
	return ctx
}

// StageDone implements the PipelineObserver interface. It records a
// span event for the stage and feeds the stage latency histogram.
func (o *OTelPipelineObserver) StageDone(
	ctx context.Context,
	stage string,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("stage", stage),
		attribute.Int64("elapsed_ms", elapsed.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	span.AddEvent("pipeline.stage_done", trace.WithAttributes(attrs...))

	if o.metrics != nil {
		o.metrics.RecordLatency("explain", elapsed, map[string]string{"stage": stage})
	}
}

// End implements the PipelineObserver interface. It finalizes the span,
// records the consensus and uncertainty distributions, and handles any
// terminal error.
func (o *OTelPipelineObserver) End(
	ctx context.Context,
	payload *domain.ExplanationPayload,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if o.metrics != nil {
		o.metrics.RecordLatency("explain", elapsed, map[string]string{"stage": "total"})
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if o.metrics != nil {
			o.metrics.RecordCounter("explain_request", 1, map[string]string{"status": "error"})
		}
		return
	}

	span.AddEvent("pipeline.completed", trace.WithAttributes(
		attribute.Float64("consensus.score", payload.Explanation.ConsensusScore),
		attribute.Int("consensus.methods", len(payload.Explanation.ContributingMethods)),
		attribute.Int("consensus.excluded", len(payload.Explanation.ExcludedMethods)),
	))

	if o.metrics != nil {
		o.metrics.RecordCounter("explain_request", 1, map[string]string{"status": "success"})
		o.metrics.RecordHistogram("consensus_score", payload.Explanation.ConsensusScore, nil)
		if payload.Uncertainty != nil {
			o.metrics.RecordHistogram("predictive_entropy", payload.Uncertainty.MeanUncertainty, nil)
		}
	}
}

// NopPipelineObserver discards all callbacks. It keeps call sites free
// of nil checks when tracing is disabled.
type NopPipelineObserver struct{}

var _ PipelineObserver = NopPipelineObserver{}

func (NopPipelineObserver) Begin(ctx context.Context, _ string) context.Context { return ctx }

func (NopPipelineObserver) StageDone(context.Context, string, time.Duration, error) {}

func (NopPipelineObserver) End(context.Context, *domain.ExplanationPayload, time.Duration, error) {}
