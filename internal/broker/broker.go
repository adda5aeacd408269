package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/lablink/dispatcher-core/internal/infrastructure/logging"
	"github.com/lablink/dispatcher-core/internal/registry"
	"github.com/lablink/dispatcher-core/internal/session"
)

// PairResult is returned to the requesting transport after a successful
// interface-to-device pairing.
type PairResult struct {
	DeviceID   string `json:"deviceId"`
	DeviceType string `json:"deviceType"`
	Message    string `json:"message"`
}

// Broker owns the session lifecycle: device announcements, interface
// pairing, explicit disconnects, and the transport-loss safety net. All
// session state lives in the store; the broker holds no locks of its own,
// so concurrent connects for the same device race safely (last write wins).
type Broker struct {
	registry  registry.Repository
	sessions  session.Store
	announcer *Announcer
	logger    *logging.Logger
}

// New creates a broker.
func New(reg registry.Repository, sessions session.Store, announcer *Announcer, logger *logging.Logger) *Broker {
	return &Broker{
		registry:  reg,
		sessions:  sessions,
		announcer: announcer,
		logger:    logger.With("component", "broker"),
	}
}

// DeviceConnect records that deviceID is reachable on transportID and
// broadcasts device_connected. A reconnect on a new transport overwrites
// the old binding and keeps any interface pairing.
func (b *Broker) DeviceConnect(ctx context.Context, deviceID, transportID string) error {
	if deviceID == "" {
		b.logger.Error("device connect without device id", "transport_id", transportID)
		return ErrEmptyDeviceID
	}

	if err := b.sessions.UpsertTransport(ctx, deviceID, transportID); err != nil {
		return fmt.Errorf("recording device connection: %w", err)
	}

	b.logger.Info("device connected", "device_id", deviceID, "transport_id", transportID)
	b.announcer.Announce(EventDeviceConnected, map[string]any{"deviceId": deviceID})
	b.recordSessionCount(ctx)

	return nil
}

// InterfaceConnect pairs an interface to the device its registration code
// points at. The result is addressed only to the requesting transport; no
// broadcast is emitted and the device is not separately notified.
func (b *Broker) InterfaceConnect(ctx context.Context, interfaceID, connectionCode string) (*PairResult, error) {
	if interfaceID == "" {
		return nil, ErrEmptyInterfaceID
	}

	iface, err := b.registry.GetInterface(ctx, interfaceID)
	if err != nil {
		if errors.Is(err, registry.ErrInterfaceNotFound) {
			return nil, ErrInterfaceNotFound
		}
		return nil, fmt.Errorf("resolving interface %s: %w", interfaceID, err)
	}

	if iface.DeviceCode != connectionCode {
		b.logger.Warn("pairing rejected: connection code mismatch",
			"interface_id", interfaceID)
		return nil, ErrCodeMismatch
	}

	device, err := b.registry.GetDeviceByCode(ctx, connectionCode)
	if err != nil {
		if errors.Is(err, registry.ErrDeviceNotFound) {
			return nil, ErrDeviceNotConnected
		}
		return nil, fmt.Errorf("resolving device for code: %w", err)
	}

	if _, err := b.sessions.FindByDevice(ctx, device.ID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrDeviceNotConnected
		}
		return nil, fmt.Errorf("resolving session for device %s: %w", device.ID, err)
	}

	if err := b.sessions.Link(ctx, device.ID, interfaceID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrDeviceNotConnected
		}
		return nil, fmt.Errorf("linking interface %s to device %s: %w", interfaceID, device.ID, err)
	}

	b.logger.Info("interface paired",
		"interface_id", interfaceID, "device_id", device.ID, "device_type", device.Type)

	return &PairResult{
		DeviceID:   device.ID,
		DeviceType: device.Type,
		Message:    fmt.Sprintf("connected to %s", device.Type),
	}, nil
}

// InterfaceDisconnect unlinks an interface from its session. Disconnecting
// an interface that is not paired is not an error: the call logs and
// succeeds so that retries and stale clients stay harmless.
func (b *Broker) InterfaceDisconnect(ctx context.Context, interfaceID string) error {
	if interfaceID == "" {
		return ErrEmptyInterfaceID
	}

	sess, err := b.sessions.ClearByInterface(ctx, interfaceID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			b.logger.Info("interface disconnect for unpaired interface",
				"interface_id", interfaceID)
			return nil
		}
		return fmt.Errorf("clearing session for interface %s: %w", interfaceID, err)
	}

	b.announcer.Notify(sess.TransportID, NoticeInterfaceDisconnect, map[string]any{
		"interfaceId": interfaceID,
	})

	b.logger.Info("interface disconnected",
		"interface_id", interfaceID, "device_id", sess.DeviceID)
	b.announcer.Announce(EventInterfaceDisconnected, map[string]any{
		"interfaceId": interfaceID,
	})

	return nil
}

// DeviceDisconnect handles an explicit, device-initiated disconnect. An
// unknown device is logged and ignored.
func (b *Broker) DeviceDisconnect(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		b.logger.Error("device disconnect without device id")
		return ErrEmptyDeviceID
	}

	sess, err := b.sessions.FindByDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			b.logger.Warn("device disconnect for unknown session", "device_id", deviceID)
			return nil
		}
		return fmt.Errorf("resolving session for device %s: %w", deviceID, err)
	}

	b.announcer.Notify(sess.TransportID, NoticeDeviceDisconnect, map[string]any{
		"deviceId": deviceID,
	})

	if err := b.sessions.DeleteByDevice(ctx, deviceID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("deleting session for device %s: %w", deviceID, err)
	}

	b.logger.Info("device disconnected", "device_id", deviceID)
	b.announcer.Announce(EventDeviceDisconnected, map[string]any{"deviceId": deviceID})
	b.recordSessionCount(ctx)

	return nil
}

// TransportClosed is the safety net for crashed or dropped connections:
// every session bound to the closed transport is removed, with one
// device_disconnected broadcast per removed session. It fires whether or
// not the peer sent an explicit disconnect first.
func (b *Broker) TransportClosed(ctx context.Context, transportID string) error {
	if transportID == "" {
		return nil
	}

	removed, err := b.sessions.DeleteByTransport(ctx, transportID)
	if err != nil {
		return fmt.Errorf("cleaning up transport %s: %w", transportID, err)
	}

	for _, sess := range removed {
		b.logger.Info("device disconnected on transport close",
			"device_id", sess.DeviceID, "transport_id", transportID)
		b.announcer.Announce(EventDeviceDisconnected, map[string]any{
			"deviceId": sess.DeviceID,
		})
	}
	if len(removed) > 0 {
		b.recordSessionCount(ctx)
	}

	return nil
}

func (b *Broker) recordSessionCount(ctx context.Context) {
	if b.announcer.metrics == nil {
		return
	}

	sessions, err := b.sessions.List(ctx)
	if err != nil {
		b.logger.Warn("failed to count sessions for telemetry", "error", err)
		return
	}
	b.announcer.metrics.RecordSessionCount(len(sessions))
}
