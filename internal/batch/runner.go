// Package batch refreshes a list of client credentials one at a time.
package batch

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/tokenrefresh/internal/credentials"
	"github.com/florianilch/tokenrefresh/internal/exchange"
	"github.com/florianilch/tokenrefresh/internal/metrics"
	"github.com/florianilch/tokenrefresh/internal/snapshot"
)

// PacingDelay is the fixed wait between two consecutive entries.
const PacingDelay = time.Second

const tracerName = "github.com/florianilch/tokenrefresh/internal/batch"

// Exchanger trades one client id and secret for a token.
// Implementations report failures in the Result, never as a panic or error.
type Exchanger interface {
	Exchange(ctx context.Context, clientID, clientSecret string) exchange.Result
}

// Summary is the aggregated outcome of a run.
type Summary struct {
	Successful int
	Failed     int
	// Tokens holds one record per successful exchange, in the order they succeeded.
	Tokens []snapshot.TokenRecord
}

// Total is the number of entries processed.
func (s Summary) Total() int {
	return s.Successful + s.Failed
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records every entry on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracerProvider creates spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Runner) {
		r.tracer = tp.Tracer(tracerName)
	}
}

// Runner walks the credential list strictly sequentially.
type Runner struct {
	exchanger Exchanger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	// wait suspends between entries; replaced in tests
	wait func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner that exchanges through ex.
func NewRunner(ex Exchanger, opts ...Option) *Runner {
	r := &Runner{
		exchanger: ex,
		tracer:    otel.Tracer(tracerName),
		wait:      sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every pair in order. Entries missing a client id or secret
// count as failed without a request and without pacing. A failed exchange
// never stops the batch.
//
// The only error is ctx ending during the pacing delay; the partial summary
// is returned alongside it.
func (r *Runner) Run(ctx context.Context, pairs []credentials.Pair) (Summary, error) {
	summary := Summary{Tokens: make([]snapshot.TokenRecord, 0, len(pairs))}
	total := len(pairs)

	for i, pair := range pairs {
		if !pair.Valid() {
			r.skip(ctx, i)
			summary.Failed++
			continue
		}

		if record, ok := r.fetch(ctx, i, total, pair); ok {
			summary.Tokens = append(summary.Tokens, record)
			summary.Successful++
		} else {
			summary.Failed++
		}

		// Only requests are paced; skipped entries never wait
		if i < total-1 {
			if err := r.wait(ctx, PacingDelay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (r *Runner) skip(ctx context.Context, index int) {
	slog.WarnContext(ctx, "skipping invalid credential set", "index", index)
	if r.metrics != nil {
		r.metrics.ObserveSkipped()
	}
}

// fetch requests a token for the entry at index and reports whether it succeeded.
func (r *Runner) fetch(ctx context.Context, index, total int, pair credentials.Pair) (snapshot.TokenRecord, bool) {
	client := exchange.TruncateID(pair.ClientID)
	ctx, span := r.tracer.Start(ctx, "exchange", trace.WithAttributes(
		attribute.Int("credential.index", index),
		attribute.String("credential.client", client),
	))
	defer span.End()

	slog.InfoContext(ctx, "fetching token", "position", index+1, "total", total, "client", client)

	start := time.Now()
	res := r.exchanger.Exchange(ctx, pair.ClientID, pair.ClientSecret)
	if r.metrics != nil {
		r.metrics.ObserveExchange(res.Status, start)
	}

	if !res.Status {
		span.SetStatus(codes.Error, res.Msg)
		slog.WarnContext(ctx, "failed to fetch token", "client", client, "reason", res.Msg)
		return snapshot.TokenRecord{}, false
	}

	slog.InfoContext(ctx, "fetched token", "client", client)
	return snapshot.TokenRecord{
		ExpiresIn:   res.ExpiresIn,
		TokenType:   res.TokenType,
		AccessToken: res.AccessToken,
	}, true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
