package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lablink/dispatcher-core/internal/registry"
	"github.com/lablink/dispatcher-core/internal/session"
)

// seedDevice registers a device directly in the store.
func seedDevice(t *testing.T, srv *Server, code string) *registry.Device {
	t.Helper()

	dev := &registry.Device{
		ID:             registry.NewID(),
		Type:           "scope",
		IP:             "10.0.0.5",
		Port:           9000,
		ConnectionCode: code,
	}
	if err := srv.registry.CreateDevice(context.Background(), dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	return dev
}

func seedInterface(t *testing.T, srv *Server, code string) *registry.Interface {
	t.Helper()

	iface := &registry.Interface{
		ID:         registry.NewID(),
		Name:       "Bob",
		Email:      "b@x.com",
		DeviceCode: code,
	}
	if err := srv.registry.CreateInterface(context.Background(), iface); err != nil {
		t.Fatalf("CreateInterface() error = %v", err)
	}
	return iface
}

func TestRealtime_DeviceConnect(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.hub, "t-dev")

	dev := seedDevice(t, srv, "CODE1234")

	client.handleMessage([]byte(fmt.Sprintf(
		`{"type":"device_connect_to_dispatcher","payload":{"deviceId":"%s"}}`, dev.ID)))

	sess, err := srv.sessions.FindByDevice(context.Background(), dev.ID)
	if err != nil {
		t.Fatalf("FindByDevice() error = %v", err)
	}
	if sess.TransportID != "t-dev" {
		t.Errorf("TransportID = %q, want the announcing client's transport", sess.TransportID)
	}
}

func TestRealtime_PairingFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	device := newTestClient(t, srv.hub, "t-dev")
	iface := newTestClient(t, srv.hub, "t-if")

	dev := seedDevice(t, srv, "CODE1234")
	ifc := seedInterface(t, srv, "CODE1234")

	device.handleMessage([]byte(fmt.Sprintf(
		`{"type":"device_connect_to_dispatcher","payload":{"deviceId":"%s"}}`, dev.ID)))

	t.Run("wrong code is answered only to the requester", func(t *testing.T) {
		iface.handleMessage([]byte(fmt.Sprintf(
			`{"type":"interface_connect_to_device","id":"p1","payload":{"interfaceId":"%s","connectionCode":"WRONG000"}}`,
			ifc.ID)))

		resp := receive(t, iface)
		if resp == nil || resp.Type != MsgInterfaceConnectACK {
			t.Fatalf("response = %+v, want %s", resp, MsgInterfaceConnectACK)
		}
		payload, _ := resp.Payload.(map[string]any)
		if payload["error"] != true {
			t.Errorf("payload = %v, want tagged error", payload)
		}
		if msg := receive(t, device); msg != nil {
			t.Errorf("device transport received %+v on failed pairing", msg)
		}
	})

	t.Run("correct code links session and carries device type", func(t *testing.T) {
		iface.handleMessage([]byte(fmt.Sprintf(
			`{"type":"interface_connect_to_device","id":"p2","payload":{"interfaceId":"%s","connectionCode":"CODE1234"}}`,
			ifc.ID)))

		resp := receive(t, iface)
		if resp == nil || resp.Type != MsgInterfaceConnectACK {
			t.Fatalf("response = %+v, want %s", resp, MsgInterfaceConnectACK)
		}
		payload, _ := resp.Payload.(map[string]any)
		if payload["deviceType"] != "scope" {
			t.Errorf("deviceType = %v, want scope", payload["deviceType"])
		}

		sess, err := srv.sessions.FindByDevice(context.Background(), dev.ID)
		if err != nil {
			t.Fatalf("FindByDevice() error = %v", err)
		}
		if sess.InterfaceID == nil || *sess.InterfaceID != ifc.ID {
			t.Errorf("InterfaceID = %v, want %s", sess.InterfaceID, ifc.ID)
		}
	})

	t.Run("disconnect acks with success and notifies the device", func(t *testing.T) {
		iface.handleMessage([]byte(fmt.Sprintf(
			`{"type":"interface_disconnect_from_dispatcher","id":"d1","payload":{"interfaceId":"%s"}}`,
			ifc.ID)))

		resp := receive(t, iface)
		if resp == nil || resp.Type != WSTypeResponse || resp.ID != "d1" {
			t.Fatalf("ack = %+v, want id-correlated response", resp)
		}
		payload, _ := resp.Payload.(map[string]any)
		if payload["success"] != true {
			t.Errorf("payload = %v, want success true", payload)
		}

		notice := receive(t, device)
		if notice == nil || notice.EventType != "interface_disconnect_from_dispatcher" {
			t.Errorf("device notice = %+v, want interface_disconnect_from_dispatcher", notice)
		}

		sess, err := srv.sessions.FindByDevice(context.Background(), dev.ID)
		if err != nil {
			t.Fatalf("FindByDevice() error = %v", err)
		}
		if sess.InterfaceID != nil {
			t.Errorf("InterfaceID = %v, want nil after disconnect", sess.InterfaceID)
		}
	})

	t.Run("disconnecting again still acks success", func(t *testing.T) {
		iface.handleMessage([]byte(fmt.Sprintf(
			`{"type":"interface_disconnect_from_dispatcher","id":"d2","payload":{"interfaceId":"%s"}}`,
			ifc.ID)))

		resp := receive(t, iface)
		payload, _ := resp.Payload.(map[string]any)
		if payload["success"] != true {
			t.Errorf("payload = %v, want idempotent success", payload)
		}
	})
}

func TestRealtime_DeviceDisconnect(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.hub, "t-dev")

	dev := seedDevice(t, srv, "CODE1234")
	client.handleMessage([]byte(fmt.Sprintf(
		`{"type":"device_connect_to_dispatcher","payload":{"deviceId":"%s"}}`, dev.ID)))

	client.handleMessage([]byte(fmt.Sprintf(
		`{"type":"device_disconnect_from_dispatcher","payload":{"deviceId":"%s"}}`, dev.ID)))

	if _, err := srv.sessions.FindByDevice(context.Background(), dev.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("FindByDevice() error = %v, want ErrNotFound after disconnect", err)
	}
}

func TestRealtime_UnknownMessageType(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.hub, "t-1")

	client.handleMessage([]byte(`{"type":"warp_drive","id":"m1"}`))

	msg := receive(t, client)
	if msg == nil || msg.Type != WSTypeError {
		t.Errorf("response = %+v, want error", msg)
	}
}
