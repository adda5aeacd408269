// Package mqtt relays dispatcher events onto an MQTT bus.
//
// The relay is optional and publish-only: every domain event broadcast to
// WebSocket clients is mirrored to lablink/events/<event>, and a retained
// status message on lablink/system/status (with an LWT for crashes) lets
// bus consumers track dispatcher availability.
package mqtt
