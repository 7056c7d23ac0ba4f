package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/tokenrefresh/internal/batch"
	"github.com/florianilch/tokenrefresh/internal/credentials"
	"github.com/florianilch/tokenrefresh/internal/exchange"
	"github.com/florianilch/tokenrefresh/internal/metrics"
	"github.com/florianilch/tokenrefresh/internal/snapshot"
)

const tracerName = "github.com/florianilch/tokenrefresh/internal/app"

// Option configures an App.
type Option func(*options)

type options struct {
	fs afero.Fs
}

// WithFs sets the filesystem used for credential files and the snapshot.
// Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// App wires one refresh run: credentials in, tokens exchanged, snapshot out.
type App struct {
	cfg     *Config
	source  credentials.Source
	runner  *batch.Runner
	writer  *snapshot.Writer
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New creates a new App instance. Configuration is read once here and not
// consulted again, apart from the output paths.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(o)
	}

	// I/O deferred to Run, except for AWS config discovery
	source, err := cfg.Credentials.NewSource(ctx, o.fs)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials source: %w", err)
	}

	writer, err := snapshot.NewWriter(o.fs, cfg.Output.File)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot writer: %w", err)
	}

	m := metrics.New()
	exchanger := exchange.New(cfg.Endpoint, exchange.WithTimeout(cfg.Timeout))

	return &App{
		cfg:     cfg,
		source:  source,
		runner:  batch.NewRunner(exchanger, batch.WithMetrics(m)),
		writer:  writer,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Run performs one refresh. It fails only if the credentials cannot be loaded,
// the run is interrupted or the snapshot cannot be written; failed exchanges
// are reported in the snapshot instead.
func (a *App) Run(ctx context.Context) (snapshot.Snapshot, error) {
	runID := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, "refresh", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	logger := slog.With("run_id", runID)
	logger.InfoContext(ctx, "starting token update process", "endpoint", a.cfg.Endpoint)

	pairs, err := a.source.Load(ctx)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	logger.InfoContext(ctx, "processing credential sets", "count", len(pairs))

	summary, err := a.runner.Run(ctx, pairs)
	if err != nil {
		logger.WarnContext(ctx, "run interrupted, snapshot not written",
			"processed", summary.Total(),
			"total", len(pairs),
		)
		return snapshot.Snapshot{}, fmt.Errorf("batch interrupted: %w", err)
	}

	snap, err := a.writer.Write(summary.Successful, summary.Failed, summary.Tokens)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	logger.InfoContext(ctx, "generated snapshot", "path", a.writer.Path())

	a.metrics.ObserveSnapshot(len(snap.Tokens), time.Now())
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			// Snapshot is already written; metrics are best effort
			logger.ErrorContext(ctx, "failed to write metrics", "error", err)
		}
	}

	logger.InfoContext(ctx, "summary",
		"successful", summary.Successful,
		"failed", summary.Failed,
		"total", len(pairs),
	)

	return snap, nil
}
