package store

import (
	"math"
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// subscriberBuffer is the channel buffer size handed to each subscriber.
const subscriberBuffer = 100

// SampleBuffer is a capacity-bounded, insertion-ordered [Store].
//
// Samples are kept in a ring deque. When an append pushes the length past the
// capacity, exactly one sample is evicted from the head (oldest first). Since
// appends are serialized, the length never exceeds the capacity once Append
// returns.
//
// Subscribers receive appended samples via buffered channels (buffer size 100).
// Sends are non-blocking; a full subscriber misses the sample.
type SampleBuffer struct {
	mu       sync.RWMutex
	samples  *deque.Deque[Sample]
	capacity int
	evicted  uint64
	now      func() time.Time

	subscribers map[chan Sample]struct{}
	subMu       sync.RWMutex
}

// NewSampleBuffer creates an empty [SampleBuffer] holding at most [MaxCapacity] samples.
func NewSampleBuffer() *SampleBuffer {
	return newSampleBuffer(MaxCapacity, time.Now)
}

func newSampleBuffer(capacity int, now func() time.Time) *SampleBuffer {
	return &SampleBuffer{
		// min capacity 64 keeps the deque from shrinking below a useful size
		samples:     deque.New[Sample](0, 64),
		capacity:    capacity,
		now:         now,
		subscribers: make(map[chan Sample]struct{}),
	}
}

// Append adds a sample to the tail of the buffer and evicts the oldest sample
// if the buffer is over capacity.
//
// If timeLabel is empty, a label is generated from the current UTC time as
// HH:MM:SS. Returns [ErrInvalidValue] if value is NaN or infinite, in which
// case the buffer is not modified.
func (b *SampleBuffer) Append(value float64, timeLabel string) (Sample, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Sample{}, ErrInvalidValue
	}

	if timeLabel == "" {
		timeLabel = b.now().UTC().Format(TimeLabelLayout)
	}
	s := Sample{Time: timeLabel, Value: value}

	b.mu.Lock()
	b.samples.PushBack(s)
	if b.samples.Len() > b.capacity {
		b.samples.PopFront()
		b.evicted++
	}
	b.mu.Unlock()

	b.notifySubscribers(s)
	return s, nil
}

// Snapshot returns a copy of the retained samples, oldest first.
//
// The copy is taken under the buffer lock, so it always reflects a state
// between two appends. An empty buffer yields an empty, non-nil slice.
func (b *SampleBuffer) Snapshot() []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Sample, b.samples.Len())
	for i := range out {
		out[i] = b.samples.At(i)
	}
	return out
}

// Len returns the number of retained samples.
func (b *SampleBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.samples.Len()
}

// Capacity returns the maximum number of retained samples.
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}

// Evicted returns how many samples have been dropped from the head since the
// buffer was created.
func (b *SampleBuffer) Evicted() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evicted
}

// Subscribe creates a new subscription and returns a channel for receiving
// appended samples.
//
// Caller must call [SampleBuffer.Unsubscribe] when done to prevent resource leaks.
func (b *SampleBuffer) Subscribe() <-chan Sample {
	ch := make(chan Sample, subscriberBuffer)

	b.subMu.Lock()
	b.subscribers[ch] = struct{}{}
	b.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (b *SampleBuffer) Unsubscribe(ch <-chan Sample) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for subCh := range b.subscribers {
		if subCh == ch {
			delete(b.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends s to every subscriber without blocking.
func (b *SampleBuffer) notifySubscribers(s Sample) {
	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- s:
		default:
			// subscriber is slow, drop the sample
		}
	}
}

var _ Store = (*SampleBuffer)(nil)
