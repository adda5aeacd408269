package broker

import (
	"github.com/lablink/dispatcher-core/internal/infrastructure/logging"
)

// Transport delivers events to connected real-time clients. Broadcast
// reaches every transport subscribed to the event's channel; Send targets
// a single transport by id.
type Transport interface {
	Broadcast(event string, payload any)
	Send(transportID, event string, payload any) error
}

// EventRelay mirrors broadcast events onto an external bus for consumers
// that are not connected over the real-time channel.
type EventRelay interface {
	PublishEvent(event string, payload any) error
}

// MetricSink records broker activity for telemetry.
type MetricSink interface {
	RecordEvent(event string)
	RecordSessionCount(count int)
}

// Announcer fans a domain event out to the real-time transport, the
// external relay, and telemetry. Relay and metrics are optional; a nil
// collaborator is skipped. Fan-out is best-effort: a relay failure is
// logged and never blocks or fails the triggering operation.
type Announcer struct {
	transport Transport
	relay     EventRelay
	metrics   MetricSink
	logger    *logging.Logger
}

// NewAnnouncer creates an announcer. relay and metrics may be nil.
func NewAnnouncer(transport Transport, relay EventRelay, metrics MetricSink, logger *logging.Logger) *Announcer {
	return &Announcer{
		transport: transport,
		relay:     relay,
		metrics:   metrics,
		logger:    logger,
	}
}

// Announce broadcasts event to subscribed transports and mirrors it to the
// relay and metric sink.
func (a *Announcer) Announce(event string, payload any) {
	a.transport.Broadcast(event, payload)

	if a.relay != nil {
		if err := a.relay.PublishEvent(event, payload); err != nil {
			a.logger.Warn("failed to relay event", "event", event, "error", err)
		}
	}

	if a.metrics != nil {
		a.metrics.RecordEvent(event)
	}
}

// Notify sends event directly to a single transport, without broadcast or
// relay. Used for protocol notifications addressed to one peer.
func (a *Announcer) Notify(transportID, event string, payload any) {
	if err := a.transport.Send(transportID, event, payload); err != nil {
		a.logger.Warn("failed to notify transport",
			"transport_id", transportID, "event", event, "error", err)
	}
}
