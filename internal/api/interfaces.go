package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lablink/dispatcher-core/internal/broker"
	"github.com/lablink/dispatcher-core/internal/registry"
)

// registerInterfaceRequest is the payload for POST /api/register_interface.
type registerInterfaceRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	DeviceCode string `json:"deviceCode"`
}

// handleRegisterInterface creates an interface and broadcasts
// interface_registered. The response is enriched with the target device's
// type and subnet when the device code resolves; an unknown code yields
// null enrichment, not an error.
func (s *Server) handleRegisterInterface(w http.ResponseWriter, r *http.Request) {
	var req registerInterfaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	if req.Name == "" {
		writeValidationError(w, "name is required")
		return
	}
	if req.Email == "" {
		writeValidationError(w, "email is required")
		return
	}
	if req.DeviceCode == "" {
		writeValidationError(w, "deviceCode is required")
		return
	}

	iface := &registry.Interface{
		ID:         registry.NewID(),
		Name:       req.Name,
		Email:      req.Email,
		DeviceCode: req.DeviceCode,
	}

	if err := iface.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.registry.CreateInterface(r.Context(), iface); err != nil {
		if errors.Is(err, registry.ErrInterfaceExists) {
			writeConflict(w, "interface already registered for this email and device code")
			return
		}
		s.logger.Error("failed to create interface", "error", err)
		writeInternalError(w, "failed to register interface")
		return
	}

	detail, err := s.registry.GetInterfaceDetail(r.Context(), iface.ID)
	if err != nil {
		// Enrichment is best-effort; fall back to the bare record.
		s.logger.Warn("failed to enrich interface response", "interface_id", iface.ID, "error", err)
		detail = &registry.InterfaceDetail{Interface: *iface}
	}

	s.logger.Info("interface registered",
		"interface_id", iface.ID, "email", iface.Email)
	s.announcer.Announce(broker.EventInterfaceRegistered, detail)

	writeJSON(w, http.StatusCreated, detail)
}

// handleDeleteInterface removes an interface, clearing the link on any
// session that references it, and broadcasts interface_deleted.
func (s *Server) handleDeleteInterface(w http.ResponseWriter, r *http.Request) {
	interfaceID := chi.URLParam(r, "interfaceID")
	if interfaceID == "" {
		writeValidationError(w, "interface id is required")
		return
	}

	if err := s.registry.DeleteInterfaceCascade(r.Context(), interfaceID); err != nil {
		if errors.Is(err, registry.ErrInterfaceNotFound) {
			writeNotFound(w, "interface not found")
			return
		}
		s.logger.Error("failed to delete interface", "interface_id", interfaceID, "error", err)
		writeInternalError(w, "failed to delete interface")
		return
	}

	s.logger.Info("interface deleted", "interface_id", interfaceID)
	s.announcer.Announce(broker.EventInterfaceDeleted, map[string]any{"interfaceId": interfaceID})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"interfaceId": interfaceID,
	})
}

// handleInterfacesByEmail lists the interfaces owned by an email address,
// each enriched with its target device's type and subnet where known.
func (s *Server) handleInterfacesByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeValidationError(w, "email query parameter is required")
		return
	}

	details, err := s.registry.ListInterfacesByEmail(r.Context(), email)
	if err != nil {
		s.logger.Error("failed to list interfaces by email", "error", err)
		writeInternalError(w, "failed to list interfaces")
		return
	}

	if details == nil {
		details = []registry.InterfaceDetail{}
	}
	writeJSON(w, http.StatusOK, details)
}
