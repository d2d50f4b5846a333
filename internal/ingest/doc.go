// Package ingest implements the write path shared by every transport.
//
// HTTP handlers and the MQTT subscriber hand raw payload bytes to
// [Ingestor.Ingest], which applies the optional rate limit, decodes and
// validates the payload with [Decode], appends the reading to the sample
// buffer, updates metrics and finally runs any registered sample callbacks.
//
// Payloads are JSON objects of the form:
//
//	{"mq_raw": 0.42, "time": "12:00:01"}
//
// where "time" is optional. A body that is not a JSON object is treated as an
// empty object, so it is rejected with the same "mq_raw required" error as a
// payload missing the field.
//
// MQTT devices often publish their own layout. A [Decoder] built with
// [NewDecoder] reads the value and label from dotted paths instead, and
// [Ingestor.IngestWith] applies it.
package ingest
