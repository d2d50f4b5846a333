package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jpalmerr/mqmon/internal/metrics"
	"github.com/jpalmerr/mqmon/internal/store"
)

// Payload field names.
const (
	FieldValue = "mq_raw"
	FieldTime  = "time"
)

// RootPath selects the whole payload, for devices that publish a bare
// number such as "512".
const RootPath = "$"

// Reading is a decoded, validated ingest payload.
type Reading struct {
	// Value is the finite sensor reading.
	Value float64

	// Time is the caller-supplied label, or empty if none was given.
	Time string
}

// ValidationError describes a payload rejected before reaching the buffer.
//
// Message is safe to return to the client. ValidationError matches
// [store.ErrInvalidValue] via errors.Is.
type ValidationError struct {
	// Reason is the metrics label for this rejection.
	Reason string

	// Message is the client-facing description.
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap allows errors.Is(err, store.ErrInvalidValue).
func (e *ValidationError) Unwrap() error {
	return store.ErrInvalidValue
}

// Decoder locates the reading and its optional label inside a JSON payload.
//
// Paths use dot notation: "ANALOG.A0" reads {"ANALOG": {"A0": 512}}.
// A Decoder is immutable and safe for concurrent use.
type Decoder struct {
	valuePath []string
	timePath  []string

	errMissingValue *ValidationError
	errNotNumeric   *ValidationError
	errTimeNotText  *ValidationError
}

// DefaultDecoder reads the POST /ingest schema: {"mq_raw": ..., "time": ...}.
var DefaultDecoder = mustDecoder(FieldValue, FieldTime)

// NewDecoder returns a [Decoder] reading the value at valuePath and the label
// at timePath. An empty valuePath means "mq_raw"; an empty timePath disables
// client labels. valuePath may be [RootPath].
func NewDecoder(valuePath, timePath string) (*Decoder, error) {
	if valuePath == "" {
		valuePath = FieldValue
	}

	vp, err := splitPath(valuePath)
	if err != nil {
		return nil, fmt.Errorf("value path: %w", err)
	}

	var tp []string
	if timePath != "" {
		if timePath == RootPath {
			return nil, errors.New("time path cannot be the whole payload")
		}
		if tp, err = splitPath(timePath); err != nil {
			return nil, fmt.Errorf("time path: %w", err)
		}
	}

	return &Decoder{
		valuePath:       vp,
		timePath:        tp,
		errMissingValue: &ValidationError{Reason: metrics.ReasonMissingValue, Message: valuePath + " required"},
		errNotNumeric:   &ValidationError{Reason: metrics.ReasonInvalidValue, Message: valuePath + " must be a number"},
		errTimeNotText:  &ValidationError{Reason: metrics.ReasonInvalidTime, Message: timePath + " must be a string"},
	}, nil
}

func mustDecoder(valuePath, timePath string) *Decoder {
	d, err := NewDecoder(valuePath, timePath)
	if err != nil {
		panic(err)
	}
	return d
}

// splitPath validates a dotted path. RootPath yields an empty path.
func splitPath(path string) ([]string, error) {
	if path == RootPath {
		return nil, nil
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid path %q", path)
		}
	}
	return parts, nil
}

// Decode parses and validates an ingest payload with [DefaultDecoder].
//
// A body that is not a JSON object decodes as an empty object. mq_raw may be a
// JSON number or a string holding a finite decimal number; time, if present and
// not null, must be a string.
func Decode(body []byte) (Reading, error) {
	return DefaultDecoder.Decode(body)
}

// Decode parses body and extracts the reading.
//
// Unparseable JSON or a missing or null value yields a "required" error. The
// value may be a JSON number or a string holding a finite decimal number. The
// label, if present and not null, must be a string.
func (d *Decoder) Decode(body []byte) (Reading, error) {
	var data any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil || dec.Decode(new(any)) != io.EOF {
		data = nil
	}

	raw, ok := lookupPath(data, d.valuePath)
	if !ok || raw == nil {
		return Reading{}, d.errMissingValue
	}

	value, ok := parseValue(raw)
	if !ok {
		return Reading{}, d.errNotNumeric
	}

	reading := Reading{Value: value}

	if d.timePath != nil {
		if rawTime, ok := lookupPath(data, d.timePath); ok && rawTime != nil {
			label, isText := rawTime.(string)
			if !isText {
				return Reading{}, d.errTimeNotText
			}
			reading.Time = label
		}
	}

	return reading, nil
}

// lookupPath walks a decoded JSON structure using dot notation parts.
func lookupPath(data any, parts []string) (any, bool) {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// parseValue accepts JSON numbers and numeric strings.
func parseValue(raw any) (float64, bool) {
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		// booleans, objects and arrays
		return 0, false
	}

	// numbers out of float64 range fail here
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
