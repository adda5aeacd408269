package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lablink/dispatcher-core/internal/broker"
	"github.com/lablink/dispatcher-core/internal/registry"
)

// registerDeviceRequest is the payload for POST /api/register_device.
type registerDeviceRequest struct {
	Type     string `json:"type"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Subnet   string `json:"subnet"`
	IsPublic bool   `json:"is_public"`
}

// handleRegisterDevice creates a device and broadcasts device_registered.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	if req.Type == "" {
		writeValidationError(w, "type is required")
		return
	}
	if req.IP == "" {
		writeValidationError(w, "ip is required")
		return
	}
	if req.Port == 0 {
		writeValidationError(w, "port is required")
		return
	}

	code, err := registry.NewConnectionCode()
	if err != nil {
		s.logger.Error("failed to generate connection code", "error", err)
		writeInternalError(w, "failed to register device")
		return
	}

	device := &registry.Device{
		ID:             registry.NewID(),
		Type:           req.Type,
		IP:             req.IP,
		Port:           req.Port,
		Subnet:         req.Subnet,
		IsPublic:       req.IsPublic,
		ConnectionCode: code,
	}

	if err := device.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.registry.CreateDevice(r.Context(), device); err != nil {
		if errors.Is(err, registry.ErrDeviceExists) {
			writeConflict(w, "device already registered for this ip and port")
			return
		}
		s.logger.Error("failed to create device", "error", err)
		writeInternalError(w, "failed to register device")
		return
	}

	s.logger.Info("device registered",
		"device_id", device.ID, "type", device.Type, "ip", device.IP, "port", device.Port)
	s.announcer.Announce(broker.EventDeviceRegistered, device)

	writeJSON(w, http.StatusCreated, device)
}

// handleDeleteDevice removes a device and any session bound to it. If a live
// session existed, device_disconnected is broadcast before device_deleted.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		writeValidationError(w, "device id is required")
		return
	}

	hadSession, err := s.registry.DeleteDeviceCascade(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, registry.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to delete device", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	if hadSession {
		s.announcer.Announce(broker.EventDeviceDisconnected, map[string]any{"deviceId": deviceID})
	}

	s.logger.Info("device deleted", "device_id", deviceID, "had_session", hadSession)
	s.announcer.Announce(broker.EventDeviceDeleted, map[string]any{"deviceId": deviceID})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"deviceId": deviceID,
	})
}
