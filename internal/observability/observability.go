// Package observability sets up the process-wide slog logger and, optionally,
// OpenTelemetry log and trace export.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/term"
)

// Log formats accepted by Instrument.
const (
	FormatText = "text"
	FormatJSON = "json"
	// FormatAuto selects text when the log writer is a terminal and JSON otherwise.
	FormatAuto = "auto"
)

// Exporters accepted by Instrument.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp_http"
	ExporterOTLPGRPC = "otlp_grpc"
)

// ServiceName identifies this process in exported telemetry.
const ServiceName = "tokenrefresh"

// Options configures Instrument.
type Options struct {
	Level    slog.Level
	Format   string
	Exporter string
	// Writer receives local log lines (and stdout telemetry). Defaults to os.Stderr.
	Writer io.Writer
}

// ShutdownFunc flushes and stops telemetry export.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger for the process. When an
// exporter is configured, records are also sent through the OpenTelemetry
// logs SDK and spans through a global tracer provider; OTLP exporters read
// the standard OTEL_EXPORTER_OTLP_* variables.
//
// The returned ShutdownFunc must be called before exit to flush pending records.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	local, err := localHandler(opts.Format, w, opts.Level)
	if err != nil {
		return nil, err
	}

	if opts.Exporter == "" || opts.Exporter == ExporterNone {
		slog.SetDefault(slog.New(local))
		return func(context.Context) error { return nil }, nil
	}

	spanExporter, err := newSpanExporter(ctx, opts.Exporter, w)
	if err != nil {
		return nil, fmt.Errorf("creating %s trace exporter: %w", opts.Exporter, err)
	}

	logExporter, err := newLogExporter(ctx, opts.Exporter, w)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, fmt.Errorf("creating %s log exporter: %w", opts.Exporter, err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(minsev.NewLogProcessor(sdklog.NewBatchProcessor(logExporter), severity(opts.Level))),
	)
	global.SetLoggerProvider(loggerProvider)

	otelHandler := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(loggerProvider))
	slog.SetDefault(slog.New(fanoutHandler{local, otelHandler}))

	return func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), loggerProvider.Shutdown(ctx))
	}, nil
}

func localHandler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch resolveFormat(format, w) {
	case FormatText:
		return slog.NewTextHandler(w, handlerOpts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, handlerOpts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// resolveFormat maps FormatAuto (and the empty default) to a concrete format.
func resolveFormat(format string, w io.Writer) string {
	switch format {
	case "":
		return FormatText
	case FormatAuto:
		if f, ok := w.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
			return FormatText
		}
		return FormatJSON
	default:
		return format
	}
}

func newSpanExporter(ctx context.Context, name string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterOTLPHTTP:
		return otlptracehttp.New(ctx)
	case ExporterOTLPGRPC:
		return otlptracegrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", name)
	}
}

func newLogExporter(ctx context.Context, name string, w io.Writer) (sdklog.Exporter, error) {
	switch name {
	case ExporterStdout:
		return stdoutlog.New(stdoutlog.WithWriter(w))
	case ExporterOTLPHTTP:
		return otlploghttp.New(ctx)
	case ExporterOTLPGRPC:
		return otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", name)
	}
}

// severity converts a slog level to the minimum severity exported.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
