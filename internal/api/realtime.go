package api

import (
	"context"
	"errors"

	"github.com/lablink/dispatcher-core/internal/broker"
)

// Real-time protocol message types. Devices and interfaces send these over
// the WebSocket channel to drive the session lifecycle.
const (
	MsgDeviceConnect       = "device_connect_to_dispatcher"
	MsgInterfaceConnect    = "interface_connect_to_device"
	MsgInterfaceConnectACK = "interface_connect_to_device_response"
	MsgInterfaceDisconnect = "interface_disconnect_from_dispatcher"
	MsgDeviceDisconnect    = "device_disconnect_from_dispatcher"
)

// deviceConnectPayload announces a device on the current transport.
type deviceConnectPayload struct {
	DeviceID string `json:"deviceId"`
}

// interfaceConnectPayload requests pairing with the device behind a code.
type interfaceConnectPayload struct {
	InterfaceID    string `json:"interfaceId"`
	ConnectionCode string `json:"connectionCode"`
}

// interfaceDisconnectPayload releases an interface's pairing.
type interfaceDisconnectPayload struct {
	InterfaceID string `json:"interfaceId"`
}

// deviceDisconnectPayload is an explicit, device-initiated disconnect.
type deviceDisconnectPayload struct {
	DeviceID string `json:"deviceId"`
}

// handleProtocolMessage dispatches session-lifecycle messages to the broker.
func (c *WSClient) handleProtocolMessage(msg WSMessage) {
	if c.hub.broker == nil {
		c.sendError(msg.ID, "broker not available")
		return
	}

	switch msg.Type {
	case MsgDeviceConnect:
		c.handleDeviceConnect(msg)
	case MsgInterfaceConnect:
		c.handleInterfaceConnect(msg)
	case MsgInterfaceDisconnect:
		c.handleInterfaceDisconnect(msg)
	case MsgDeviceDisconnect:
		c.handleDeviceDisconnect(msg)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func (c *WSClient) handleDeviceConnect(msg WSMessage) {
	var payload deviceConnectPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		c.sendError(msg.ID, "invalid device connect payload")
		return
	}

	err := c.hub.broker.DeviceConnect(context.Background(), payload.DeviceID, c.transportID)
	if err != nil {
		if errors.Is(err, broker.ErrEmptyDeviceID) {
			// Logged by the broker; the announcement is simply dropped.
			return
		}
		c.hub.logger.Error("device connect failed",
			"device_id", payload.DeviceID, "transport_id", c.transportID, "error", err)
		c.sendError(msg.ID, "failed to record device connection")
	}
}

// handleInterfaceConnect validates a pairing request. The outcome, success
// or failure, goes only to the requesting transport as an
// interface_connect_to_device_response; nothing is broadcast.
func (c *WSClient) handleInterfaceConnect(msg WSMessage) {
	var payload interfaceConnectPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		c.sendPairError(msg.ID, "invalid pairing payload")
		return
	}

	result, err := c.hub.broker.InterfaceConnect(
		context.Background(), payload.InterfaceID, payload.ConnectionCode)
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrInterfaceNotFound):
			c.sendPairError(msg.ID, "interface not found")
		case errors.Is(err, broker.ErrCodeMismatch):
			c.sendPairError(msg.ID, "connection code mismatch")
		case errors.Is(err, broker.ErrDeviceNotConnected):
			c.sendPairError(msg.ID, "device not connected")
		case errors.Is(err, broker.ErrEmptyInterfaceID):
			c.sendPairError(msg.ID, "interface id is required")
		default:
			c.hub.logger.Error("pairing failed",
				"interface_id", payload.InterfaceID, "error", err)
			c.sendPairError(msg.ID, "pairing failed")
		}
		return
	}

	c.sendResponse(msg.ID, MsgInterfaceConnectACK, result)
}

// handleInterfaceDisconnect releases a pairing and acknowledges the caller
// with {success} keyed by the message id.
func (c *WSClient) handleInterfaceDisconnect(msg WSMessage) {
	var payload interfaceDisconnectPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
			"success": false,
			"error":   "invalid disconnect payload",
		})
		return
	}

	err := c.hub.broker.InterfaceDisconnect(context.Background(), payload.InterfaceID)
	if err != nil {
		c.hub.logger.Error("interface disconnect failed",
			"interface_id", payload.InterfaceID, "error", err)
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{
			"success": false,
			"error":   "failed to disconnect interface",
		})
		return
	}

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"success": true})
}

func (c *WSClient) handleDeviceDisconnect(msg WSMessage) {
	var payload deviceDisconnectPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		c.sendError(msg.ID, "invalid device disconnect payload")
		return
	}

	err := c.hub.broker.DeviceDisconnect(context.Background(), payload.DeviceID)
	if err != nil && !errors.Is(err, broker.ErrEmptyDeviceID) {
		c.hub.logger.Error("device disconnect failed",
			"device_id", payload.DeviceID, "error", err)
		c.sendError(msg.ID, "failed to disconnect device")
	}
}

// sendPairError sends a pairing failure as a tagged response to the
// requester only.
func (c *WSClient) sendPairError(id, message string) {
	c.sendResponse(id, MsgInterfaceConnectACK, map[string]any{
		"error":   true,
		"message": message,
	})
}
