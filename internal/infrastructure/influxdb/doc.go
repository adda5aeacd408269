// Package influxdb provides the dispatcher's optional telemetry sink.
//
// It wraps the official influxdb-client-go v2 library for connection
// management and non-blocking batched writes. The broker records one point
// per broadcast event and a live-session gauge after each lifecycle change.
//
// All methods are safe for concurrent use. Write errors are delivered
// asynchronously via SetOnError.
package influxdb
