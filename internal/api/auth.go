package api

import (
	"net/http"
	"net/url"
)

// handleAuthLogin redirects the caller to the external identity provider's
// authorization page.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeNotFound(w, "identity provider not configured")
		return
	}

	http.Redirect(w, r, s.identity.AuthCodeURL(), http.StatusFound)
}

// handleAuthCallback exchanges the provider's authorization code for a token
// and profile, then redirects to the configured front-end success URL with
// token, name, and email as query parameters.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeNotFound(w, "identity provider not configured")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeValidationError(w, "code query parameter is required")
		return
	}

	id, err := s.identity.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("identity exchange failed", "error", err)
		writeInternalError(w, "identity exchange failed")
		return
	}

	target := s.identity.SuccessURL() + "?" + url.Values{
		"token": {id.Token},
		"name":  {id.Name},
		"email": {id.Email},
	}.Encode()

	http.Redirect(w, r, target, http.StatusFound)
}
