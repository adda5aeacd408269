package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lablink/dispatcher-core/internal/registry"
	"github.com/lablink/dispatcher-core/internal/session"
)

// handleAdminDevices lists every registered device.
func (s *Server) handleAdminDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	if devices == nil {
		devices = []registry.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleAdminInterfaces lists every registered interface.
func (s *Server) handleAdminInterfaces(w http.ResponseWriter, r *http.Request) {
	interfaces, err := s.registry.ListInterfaces(r.Context())
	if err != nil {
		s.logger.Error("failed to list interfaces", "error", err)
		writeInternalError(w, "failed to list interfaces")
		return
	}

	if interfaces == nil {
		interfaces = []registry.Interface{}
	}
	writeJSON(w, http.StatusOK, interfaces)
}

// handleAdminSessions lists every live session.
func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleAdminSession looks up the session for a single device.
func (s *Server) handleAdminSession(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	sess, err := s.sessions.FindByDevice(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidKey) {
			writeNotFound(w, "no session for device")
			return
		}
		s.logger.Error("failed to look up session", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to look up session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}
