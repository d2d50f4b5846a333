package store

import (
	"errors"
	"math"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var timeLabelPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]$`)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewSampleBuffer(t *testing.T) {
	buf := NewSampleBuffer()
	if buf == nil {
		t.Fatal("NewSampleBuffer() = nil")
	}

	if got := len(buf.Snapshot()); got != 0 {
		t.Errorf("Snapshot() = %d items, want 0", got)
	}
	if buf.Capacity() != MaxCapacity {
		t.Errorf("Capacity() = %d, want %d", buf.Capacity(), MaxCapacity)
	}
}

func TestSampleBuffer_SnapshotEmptyIsNonNil(t *testing.T) {
	buf := NewSampleBuffer()

	// nil would encode as JSON null rather than []
	if buf.Snapshot() == nil {
		t.Error("Snapshot() on empty buffer = nil, want empty slice")
	}
}

func TestSampleBuffer_Append(t *testing.T) {
	buf := NewSampleBuffer()

	got, err := buf.Append(0.42, "12:00:00")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	want := Sample{Time: "12:00:00", Value: 0.42}
	if got != want {
		t.Errorf("Append() = %+v, want %+v", got, want)
	}

	snap := buf.Snapshot()
	if diff := cmp.Diff([]Sample{want}, snap); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleBuffer_DefaultTimeLabel(t *testing.T) {
	// 23:04:05 in UTC, expressed in a non-UTC zone
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 10, 1, 4, 5, 0, loc)
	buf := newSampleBuffer(MaxCapacity, fixedClock(now))

	s, err := buf.Append(1.5, "")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if s.Time != "23:04:05" {
		t.Errorf("Time = %q, want %q", s.Time, "23:04:05")
	}
}

func TestSampleBuffer_DefaultTimeLabelMatchesPattern(t *testing.T) {
	buf := NewSampleBuffer()

	s, err := buf.Append(1, "")
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if !timeLabelPattern.MatchString(s.Time) {
		t.Errorf("Time = %q, want HH:MM:SS", s.Time)
	}
}

func TestSampleBuffer_SuppliedLabelIsOpaque(t *testing.T) {
	buf := NewSampleBuffer()

	labels := []string{"not a time", "12:00:00", "12:00:00", "2024-01-01T00:00:00Z"}
	for _, l := range labels {
		if _, err := buf.Append(1, l); err != nil {
			t.Fatalf("Append(%q) error = %v", l, err)
		}
	}

	snap := buf.Snapshot()
	for i, l := range labels {
		if snap[i].Time != l {
			t.Errorf("Snapshot()[%d].Time = %q, want %q", i, snap[i].Time, l)
		}
	}
}

func TestSampleBuffer_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewSampleBuffer()
			_, _ = buf.Append(0.1, "")

			_, err := buf.Append(tt.value, "")
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Append() error = %v, want %v", err, ErrInvalidValue)
			}
			if buf.Len() != 1 {
				t.Errorf("Len() = %d after rejected append, want 1", buf.Len())
			}
		})
	}
}

func TestSampleBuffer_BoundedSize(t *testing.T) {
	tests := []struct {
		appends int
		want    int
	}{
		{0, 0},
		{1, 1},
		{MaxCapacity - 1, MaxCapacity - 1},
		{MaxCapacity, MaxCapacity},
		{MaxCapacity + 1, MaxCapacity},
		{2*MaxCapacity + 17, MaxCapacity},
	}

	for _, tt := range tests {
		buf := NewSampleBuffer()
		for i := 0; i < tt.appends; i++ {
			if _, err := buf.Append(float64(i), ""); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		if got := len(buf.Snapshot()); got != tt.want {
			t.Errorf("after %d appends: len(Snapshot()) = %d, want %d", tt.appends, got, tt.want)
		}
	}
}

func TestSampleBuffer_FIFOEviction(t *testing.T) {
	buf := newSampleBuffer(3, time.Now)

	for i := 0; i < 3; i++ {
		_, _ = buf.Append(float64(i), "")
	}
	before := buf.Snapshot()

	_, _ = buf.Append(3, "")
	after := buf.Snapshot()

	// oldest removed, remaining order unchanged, new sample at the tail
	want := append(append([]Sample{}, before[1:]...), after[len(after)-1])
	if diff := cmp.Diff(want, after); diff != "" {
		t.Errorf("Snapshot() after eviction mismatch (-want +got):\n%s", diff)
	}
	if after[len(after)-1].Value != 3 {
		t.Errorf("newest Value = %v, want 3", after[len(after)-1].Value)
	}
	if buf.Evicted() != 1 {
		t.Errorf("Evicted() = %d, want 1", buf.Evicted())
	}
}

func TestSampleBuffer_OrderPreserved(t *testing.T) {
	buf := NewSampleBuffer()

	for i := 0; i < MaxCapacity+500; i++ {
		_, _ = buf.Append(float64(i), "")
	}

	snap := buf.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i].Value != snap[i-1].Value+1 {
			t.Fatalf("Snapshot()[%d].Value = %v follows %v, want strictly increasing by 1",
				i, snap[i].Value, snap[i-1].Value)
		}
	}
	if snap[0].Value != 500 {
		t.Errorf("oldest Value = %v, want 500", snap[0].Value)
	}
}

func TestSampleBuffer_IdempotentRead(t *testing.T) {
	buf := NewSampleBuffer()
	for i := 0; i < 10; i++ {
		_, _ = buf.Append(float64(i)/10, "")
	}

	first := buf.Snapshot()
	second := buf.Snapshot()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("consecutive Snapshot() differ (-first +second):\n%s", diff)
	}
}

func TestSampleBuffer_SnapshotIsCopy(t *testing.T) {
	buf := NewSampleBuffer()
	_, _ = buf.Append(1, "a")

	snap := buf.Snapshot()
	snap[0].Value = 99

	if got := buf.Snapshot()[0].Value; got != 1 {
		t.Errorf("Snapshot()[0].Value = %v after mutating copy, want 1", got)
	}
}

func TestSampleBuffer_Scenario(t *testing.T) {
	buf := NewSampleBuffer()

	_, _ = buf.Append(0.42, "")
	snap := buf.Snapshot()
	if len(snap) != 1 || snap[0].Value != 0.42 {
		t.Fatalf("Snapshot() = %+v, want one sample with value 0.42", snap)
	}
	original := snap[0]

	for i := 1; i <= MaxCapacity; i++ {
		_, _ = buf.Append(float64(i), "")
	}

	snap = buf.Snapshot()
	if len(snap) != MaxCapacity {
		t.Errorf("len(Snapshot()) = %d, want %d", len(snap), MaxCapacity)
	}
	if snap[0] == original {
		t.Error("first sample is still the original 0.42 sample")
	}
	if snap[0].Value != 1 {
		t.Errorf("first Value = %v, want 1", snap[0].Value)
	}
}

func TestSampleBuffer_Subscribe(t *testing.T) {
	buf := NewSampleBuffer()

	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	go func() {
		_, _ = buf.Append(0.5, "10:00:00")
	}()

	select {
	case s := <-ch:
		if s.Value != 0.5 || s.Time != "10:00:00" {
			t.Errorf("received %+v, want {10:00:00 0.5}", s)
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive sample")
	}
}

func TestSampleBuffer_RejectedAppendNotPublished(t *testing.T) {
	buf := NewSampleBuffer()

	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	_, _ = buf.Append(math.NaN(), "")

	select {
	case s := <-ch:
		t.Errorf("received %+v for rejected append", s)
	case <-time.After(50 * time.Millisecond):
		// expected
	}
}

func TestSampleBuffer_Unsubscribe(t *testing.T) {
	buf := NewSampleBuffer()

	ch := buf.Subscribe()
	buf.Unsubscribe(ch)
	// second call must be a no-op
	buf.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
}

func TestSampleBuffer_SlowSubscriberDoesNotBlock(t *testing.T) {
	buf := NewSampleBuffer()

	// never read
	_ = buf.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*subscriberBuffer; i++ {
			_, _ = buf.Append(float64(i), "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Append() blocked on slow subscriber")
	}
}

func TestSampleBuffer_ConcurrentAccess(t *testing.T) {
	buf := newSampleBuffer(100, time.Now)

	var wg sync.WaitGroup
	numWriters := 10
	numAppends := 50

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numAppends; j++ {
				_, _ = buf.Append(float64(id*numAppends+j), "")
			}
		}(i)
	}

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numAppends; j++ {
				if n := len(buf.Snapshot()); n > 100 {
					t.Errorf("len(Snapshot()) = %d, exceeds capacity", n)
					return
				}
			}
		}()
	}

	wg.Wait()

	if buf.Len() != 100 {
		t.Errorf("Len() = %d, want 100", buf.Len())
	}

	total := uint64(numWriters * numAppends)
	if buf.Evicted() != total-100 {
		t.Errorf("Evicted() = %d, want %d", buf.Evicted(), total-100)
	}

	// no sample lost or duplicated among the retained tail
	seen := make(map[float64]bool)
	for _, s := range buf.Snapshot() {
		if seen[s.Value] {
			t.Errorf("duplicate value %v in snapshot", s.Value)
		}
		seen[s.Value] = true
	}
}
