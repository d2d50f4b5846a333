package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultInterval matches the dashboard's one second refresh.
	DefaultInterval = time.Second

	defaultTimeout = 5 * time.Second
)

// Result holds the outcome of a single push.
type Result struct {
	// Seq is the 1-based sequence number of the reading.
	Seq int

	// Payload is the reading that was sent.
	Payload Payload

	// RequestID is the X-Request-ID sent with the push.
	RequestID string

	// StatusCode is the HTTP status returned by the monitor.
	StatusCode int

	// Latency is the time taken for the push.
	Latency time.Duration

	// SentAt is when the push started.
	SentAt time.Time

	// Error is set when the push failed before a response was received.
	Error error
}

// SimulatorConfig controls the synthetic reading source.
type SimulatorConfig struct {
	// URL is the ingest endpoint, e.g. http://127.0.0.1:5000/ingest.
	URL string

	// Interval is the time between readings. Defaults to one second.
	Interval time.Duration

	// Count stops the simulator after this many readings. Zero runs until stopped.
	Count int

	// Timeout is the per-push timeout. Defaults to five seconds.
	Timeout time.Duration

	// Start is the first value of the walk, clamped to [0, 1]. Zero starts at 0.5.
	Start float64

	// Seed makes the walk reproducible when non-zero.
	Seed uint64

	// StampTime sends a client-side HH:MM:SS label instead of letting the
	// monitor stamp the reading.
	StampTime bool
}

// Simulator pushes a bounded random walk to a monitor at a fixed interval.
//
// The first reading is sent immediately on start. All lifecycle methods
// (Start, Stop) are safe for concurrent use.
type Simulator struct {
	cfg     SimulatorConfig
	client  *Client
	results chan Result
	logger  *slog.Logger
	walk    *Walk
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewSimulator creates a new [Simulator].
//
// The simulator must be started with [Simulator.Start] and stopped with
// [Simulator.Stop]. Results are available via [Simulator.Results].
func NewSimulator(cfg SimulatorConfig, logger *slog.Logger) (*Simulator, error) {
	if cfg.URL == "" {
		return nil, errors.New("simulator url is required")
	}
	if cfg.Interval < 0 || cfg.Count < 0 || cfg.Timeout < 0 {
		return nil, errors.New("simulator interval, count and timeout must not be negative")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Simulator{
		cfg:     cfg,
		client:  NewClient(),
		results: make(chan Result, 1),
		logger:  logger,
		walk:    NewWalk(cfg.Seed, cfg.Start),
	}, nil
}

// Results returns a receive-only channel that emits one [Result] per push.
//
// The channel is closed when the simulator stops or has sent Count readings.
func (s *Simulator) Results() <-chan Result {
	return s.results
}

// Start begins pushing readings in a background goroutine.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for seq := 1; ; seq++ {
			if !s.emit(runCtx, s.push(runCtx, seq)) {
				return
			}
			if s.cfg.Count > 0 && seq >= s.cfg.Count {
				return
			}

			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the simulator and waits for the in-flight push to complete.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.client.Close()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// push sends the next reading of the walk.
func (s *Simulator) push(ctx context.Context, seq int) Result {
	p := Payload{Value: s.walk.Next()}
	now := time.Now()
	if s.cfg.StampTime {
		p.Time = now.UTC().Format("15:04:05")
	}

	requestID := uuid.NewString()
	resp := s.client.Push(ctx, s.cfg.URL, p, requestID, s.cfg.Timeout)

	if resp.Error != nil {
		s.logger.Warn("push failed", "seq", seq, "request_id", requestID, "error", resp.Error)
	} else {
		s.logger.Debug("reading pushed",
			"seq", seq,
			"mq_raw", p.Value,
			"status", resp.StatusCode,
			"latency_ms", resp.Latency.Milliseconds(),
		)
	}

	return Result{
		Seq:        seq,
		Payload:    p,
		RequestID:  requestID,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		SentAt:     now,
		Error:      resp.Error,
	}
}

// emit delivers r unless ctx is cancelled first.
func (s *Simulator) emit(ctx context.Context, r Result) bool {
	select {
	case s.results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
