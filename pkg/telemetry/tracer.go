package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Tracer wraps the OpenTelemetry tracer with tiabridge-specific functionality.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NoopTracer returns a tracer that records spans nowhere.
func NoopTracer() *Tracer {
	provider := sdktrace.NewTracerProvider()
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer("tiabridge"),
	}
}

// NewTracer creates a new tracer with the given configuration.
// The stdout exporter writes to spanOut (stderr when nil) so spans never mix
// with listings on stdout.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion string, spanOut io.Writer) (*Tracer, error) {
	if !cfg.Enabled || cfg.Exporter == "none" {
		t := NoopTracer()
		t.config = cfg
		return t, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "otlp":
		exporter, err = createOTLPExporter(cfg)
	case "stdout":
		if spanOut == nil {
			spanOut = os.Stderr
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(spanOut), stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// A single-shot run exports synchronously so nothing is lost on exit.
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		config:   cfg,
	}, nil
}

// createOTLPExporter creates an OTLP gRPC exporter.
func createOTLPExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	if cfg.ExportTimeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.ExportTimeout))
	}

	opts = append(opts, otlptracegrpc.WithDialOption(
		grpc.WithUserAgent("tiabridge"),
	))

	return otlptracegrpc.New(context.Background(), opts...)
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// StartSessionSpan starts a span for a session lifecycle step.
func (t *Tracer) StartSessionSpan(ctx context.Context, step string, mode string) (context.Context, trace.Span) {
	return t.Start(ctx, "session."+step,
		AttrSessionMode.String(mode),
	)
}

// StartProjectSpan starts a span for a project operation.
func (t *Tracer) StartProjectSpan(ctx context.Context, operation, path string) (context.Context, trace.Span) {
	return t.Start(ctx, "project."+operation,
		AttrProjectPath.String(path),
	)
}

// RecordError records an error on the span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span as successful.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// TraceID returns the trace ID of the current span in the context.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// Common attribute keys.
var (
	AttrRunID       = attribute.Key("run.id")
	AttrSessionMode = attribute.Key("session.mode")
	AttrProjectPath = attribute.Key("project.path")
	AttrProjectName = attribute.Key("project.name")
	AttrController  = attribute.Key("controller.name")
	AttrCategory    = attribute.Key("listing.category")
	AttrUnitCount   = attribute.Key("listing.units")
	AttrErrorClass  = attribute.Key("error.class")
)
