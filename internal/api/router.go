package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check
	r.Get("/ping", s.handlePing)

	// Registry operations
	r.Route("/api", func(r chi.Router) {
		r.Post("/register_device", s.handleRegisterDevice)
		r.Delete("/delete_device/{deviceID}", s.handleDeleteDevice)
		r.Post("/register_interface", s.handleRegisterInterface)
		r.Delete("/delete_interface/{interfaceID}", s.handleDeleteInterface)
		r.Get("/interfaces_by_email", s.handleInterfacesByEmail)
	})

	// Admin introspection (read-only)
	r.Route("/admin", func(r chi.Router) {
		r.Get("/devices", s.handleAdminDevices)
		r.Get("/interfaces", s.handleAdminInterfaces)
		r.Get("/sessions", s.handleAdminSessions)
		r.Get("/sessions/{deviceID}", s.handleAdminSession)
	})

	// OAuth login flow (404 unless an identity provider is configured)
	r.Get("/auth/login", s.handleAuthLogin)
	r.Get("/auth/callback", s.handleAuthCallback)

	// Real-time channel
	r.Get(s.wsCfg.Path, s.handleWebSocket)

	return r
}

// handlePing returns the server health status.
func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
	})
}
