// Package tracing provides an OpenTelemetry provider with the stdout
// exporter and a helper for starting one span per dispatcher stage,
// the way the teacher's pkg/telemetry/telemetry.go wires its own OTel
// provider. pkg/dispatch does not call StartStage, so dispatches emit
// no stage spans.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Stage names the dispatcher phase a span covers (spec §4.8).
type Stage string

const (
	StageSanitize  Stage = "sanitize"
	StageAdmit     Stage = "admit"
	StageResolve   Stage = "resolve"
	StageAuthorize Stage = "authorize"
	StageExecute   Stage = "execute"
	StageAudit     Stage = "audit"
)

// NewStdoutProvider builds a TracerProvider that writes spans to
// stdout, suitable for development and for the reference cmd/agentor
// wiring; production deployments can swap in an OTLP exporter without
// touching call sites since they all go through otel.Tracer.
func NewStdoutProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartStage starts a span named after stage, tagged with the
// session id, under the "agentor/dispatch" tracer.
func StartStage(ctx context.Context, sessionID string, stage Stage) (context.Context, trace.Span) {
	tracer := otel.Tracer("agentor/dispatch")
	return tracer.Start(ctx, string(stage), trace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
}
