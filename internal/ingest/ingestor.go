package ingest

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/jpalmerr/mqmon/internal/metrics"
	"github.com/jpalmerr/mqmon/internal/store"
	"golang.org/x/time/rate"
)

// Ingest sources, used for metrics and logs.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// ErrRateLimited is returned when the ingest rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// Ingestor is the write path from raw payloads into the sample buffer.
//
// Ingestor is safe for concurrent use; serialization of appends is left to
// the underlying [store.Store].
type Ingestor struct {
	store     store.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
	limiter   *rate.Limiter
	callbacks []func(store.Sample)
}

// Option configures an [Ingestor].
type Option func(*Ingestor)

// WithRateLimit caps accepted samples per second across all sources.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(in *Ingestor) {
		if perSecond <= 0 {
			in.limiter = nil
			return
		}
		burst := int(math.Ceil(perSecond))
		in.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCallback registers a function called after each sample is stored.
// Callbacks run synchronously in registration order; panics are recovered
// and logged. Nil callbacks are ignored.
func WithCallback(cb func(store.Sample)) Option {
	return func(in *Ingestor) {
		if cb != nil {
			in.callbacks = append(in.callbacks, cb)
		}
	}
}

// New creates an [Ingestor] writing to st.
func New(st store.Store, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Ingestor {
	in := &Ingestor{
		store:   st,
		metrics: m,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest decodes body with [DefaultDecoder] and appends the reading to the
// buffer.
//
// On error the buffer is unchanged. Validation failures return a
// [*ValidationError]; exceeding the rate limit returns [ErrRateLimited].
func (in *Ingestor) Ingest(ctx context.Context, source string, body []byte) (store.Sample, error) {
	return in.IngestWith(ctx, source, DefaultDecoder, body)
}

// IngestWith is [Ingestor.Ingest] with a caller-chosen payload layout.
func (in *Ingestor) IngestWith(ctx context.Context, source string, dec *Decoder, body []byte) (store.Sample, error) {
	logAttrs := []any{"source", source}
	if id := RequestIDFromContext(ctx); id != "" {
		logAttrs = append(logAttrs, "request_id", id)
	}

	if in.limiter != nil && !in.limiter.Allow() {
		in.metrics.SampleRejected(source, metrics.ReasonRateLimited)
		in.logger.WarnContext(ctx, "sample rejected", append(logAttrs, "error", ErrRateLimited.Error())...)
		return store.Sample{}, ErrRateLimited
	}

	reading, err := dec.Decode(body)
	if err != nil {
		in.reject(ctx, source, err, logAttrs)
		return store.Sample{}, err
	}

	sample, err := in.store.Append(reading.Value, reading.Time)
	if err != nil {
		in.reject(ctx, source, err, logAttrs)
		return store.Sample{}, err
	}

	in.metrics.SampleIngested(source, sample.Value)
	in.logger.DebugContext(ctx, "sample ingested",
		append(logAttrs, "time", sample.Time, "mq_raw", sample.Value)...)

	for _, cb := range in.callbacks {
		in.invokeCallbackSafe(cb, sample)
	}

	return sample, nil
}

func (in *Ingestor) reject(ctx context.Context, source string, err error, logAttrs []any) {
	reason := metrics.ReasonInvalidValue
	var verr *ValidationError
	if errors.As(err, &verr) {
		reason = verr.Reason
	}
	in.metrics.SampleRejected(source, reason)
	in.logger.WarnContext(ctx, "sample rejected", append(logAttrs, "reason", reason, "error", err.Error())...)
}

// invokeCallbackSafe calls a sample callback with panic recovery.
func (in *Ingestor) invokeCallbackSafe(cb func(store.Sample), s store.Sample) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("sample callback panicked",
				"panic", r,
				"time", s.Time,
			)
		}
	}()
	cb(s)
}
