// Package store holds the bounded, in-memory window of sensor samples.
//
// The main components are:
//
//   - [Sample]: One reading, a display time label paired with a value
//   - [Store]: Interface for appending, reading and subscribing to samples
//   - [SampleBuffer]: Capacity-bounded FIFO implementation of Store
//
// SampleBuffer is safe for concurrent use. Appends are serialized behind a
// single lock and snapshots are copied out under the same lock, so readers
// never observe a partially applied append or eviction.
//
// Subscribers receive each newly appended sample via channels with
// non-blocking sends (slow subscribers miss samples rather than stall ingest).
package store
