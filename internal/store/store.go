package store

import "errors"

// MaxCapacity is the number of samples retained before the oldest is evicted.
// At one reading per second this is roughly the last hour.
const MaxCapacity = 3600

// TimeLabelLayout is the layout of generated time labels (UTC, 24-hour).
const TimeLabelLayout = "15:04:05"

// ErrInvalidValue is returned when a reading is missing or is not a finite number.
var ErrInvalidValue = errors.New("invalid value")

// Sample is one ingested reading.
//
// Time is an opaque display label, not a parsed timestamp. Labels are not
// guaranteed to be unique or sortable across hour boundaries; insertion order
// is the only ordering the buffer maintains.
type Sample struct {
	// Time is the display label, e.g. "14:03:59".
	Time string `json:"time"`

	// Value is the raw sensor reading.
	Value float64 `json:"mq_raw"`
}

// Store defines the storage contract used by the ingest and query paths.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Append adds a sample to the tail of the window. An empty timeLabel
	// means the store generates one from the current UTC time.
	Append(value float64, timeLabel string) (Sample, error)

	// Snapshot returns the retained samples, oldest first.
	// The returned slice is a copy; modifications do not affect the store.
	Snapshot() []Sample

	// Len returns the number of retained samples.
	Len() int

	// Subscribe returns a channel that receives each newly appended sample.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Sample

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Sample)
}
