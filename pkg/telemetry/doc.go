// Package telemetry provides logging, tracing and metrics for tiabridge runs.
//
// The package integrates structured logging (zerolog), tracing
// (OpenTelemetry) and metrics (Prometheus) behind one Telemetry value created
// at the entry point and handed to components explicitly:
//
//	tel, err := telemetry.New(cfg, os.Stderr, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	logger := tel.Logger.NewComponentLogger("project")
//	logger.WithProject(path).Info("opening project")
//
// # Tracing
//
// Spans cover the session lifecycle, project opening and each listing:
//
//	ctx, span := tel.Tracer.StartSessionSpan(ctx, "open", "headless")
//	defer span.End()
//
// Supported exporters: otlp (gRPC) and stdout. Spans are exported
// synchronously since a run is short and exits right after.
//
// # Metrics
//
// Metrics are collected in a private registry and, when MetricsConfig.File
// is set, written at shutdown in the Prometheus text format for the node
// exporter's textfile collector:
//
//	tel.Metrics.RecordWalk(groups, units)
//	tel.Metrics.RecordListed("data", 12)
package telemetry
