package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/MikeSquared-Agency/scribe/internal/redact"
	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

// OTLP exports span trees over the OpenTelemetry protocol, for backends
// that speak generic span ingestion rather than a product SDK. Spans are
// batched by the SDK and flushed at Shutdown.
type OTLP struct {
	endpoint     string
	tp           *sdktrace.TracerProvider
	tracer       trace.Tracer
	probeTimeout time.Duration
	red          *redact.Redactor
	logger       *slog.Logger
}

func NewOTLP(ctx context.Context, endpoint string, probeTimeout time.Duration, red *redact.Redactor, logger *slog.Logger) (*OTLP, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint+"/v1/traces"))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("scribe"),
		)),
	)
	return &OTLP{
		endpoint:     endpoint,
		tp:           tp,
		tracer:       tp.Tracer("github.com/MikeSquared-Agency/scribe"),
		probeTimeout: probeTimeout,
		red:          red,
		logger:       logger,
	}, nil
}

func (o *OTLP) Name() string { return "otlp" }

func (o *OTLP) HealthCheck(ctx context.Context) bool {
	return probeURL(o.endpoint, o.probeTimeout)
}

func (o *OTLP) Emit(ctx context.Context, t *turn.Turn) error {
	tree := BuildTree(t, o.red)

	rootCtx, root := o.tracer.Start(ctx, tree.RootName(),
		trace.WithTimestamp(tree.StartedAt),
		trace.WithAttributes(
			attribute.String("session.id", tree.SessionID),
			attribute.Int("turn.number", tree.TurnNumber),
			attribute.String("project", tree.Project),
			attribute.String("input", tree.Input),
			attribute.String("output", tree.Output),
		),
	)

	_, gen := o.tracer.Start(rootCtx, "Claude Response",
		trace.WithTimestamp(tree.StartedAt),
		trace.WithAttributes(
			attribute.String("gen_ai.request.model", tree.Model),
			attribute.String("input", tree.Input),
			attribute.String("output", tree.Output),
			attribute.Int("tool.count", len(tree.ToolCalls)),
		),
	)
	gen.End(trace.WithTimestamp(tree.EndedAt))

	for _, call := range tree.ToolCalls {
		attrs := []attribute.KeyValue{
			attribute.String("tool.name", call.Name),
			attribute.String("tool.id", call.ID),
			attribute.String("tool.input", string(call.Input)),
		}
		if call.Output != nil {
			attrs = append(attrs, attribute.String("tool.output", string(call.Output)))
		}
		_, span := o.tracer.Start(rootCtx, "Tool: "+call.Name,
			trace.WithTimestamp(tree.StartedAt),
			trace.WithAttributes(attrs...),
		)
		span.End(trace.WithTimestamp(tree.EndedAt))
	}

	root.End(trace.WithTimestamp(tree.EndedAt))

	o.logger.Debug("otlp spans recorded",
		"session", tree.SessionID,
		"turn", tree.TurnNumber,
		"tools", len(tree.ToolCalls),
	)
	return nil
}

// Shutdown flushes batched spans and releases the exporter.
func (o *OTLP) Shutdown(ctx context.Context) error {
	if err := o.tp.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush spans: %w", err)
	}
	return o.tp.Shutdown(ctx)
}
