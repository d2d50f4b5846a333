// Package device implements the sensor side of the ingest protocol.
//
// It is used by the "simulate" command and the example program to drive a
// monitor without real hardware. The main components are:
//
//   - [Client]: HTTP client that POSTs readings to an ingest URL
//   - [Simulator]: Pushes a synthetic reading at a fixed interval
//   - [Result]: Outcome of a single push
package device
