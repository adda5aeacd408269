package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lablink/dispatcher-core/internal/infrastructure/config"
	"github.com/lablink/dispatcher-core/internal/infrastructure/logging"
)

func testConfig(tokenURL, userInfoURL string) config.IdentityConfig {
	return config.IdentityConfig{
		Enabled:      true,
		AuthURL:      "https://id.example.com/authorize",
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURL:  "https://dispatcher.example.com/auth/callback",
		SuccessURL:   "https://app.example.com/logged-in",
	}
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := New(testConfig("https://id.example.com/token", "https://id.example.com/userinfo"), logging.Default())

	got := p.AuthCodeURL()
	if !strings.HasPrefix(got, "https://id.example.com/authorize?") {
		t.Errorf("AuthCodeURL() = %q, want authorize endpoint prefix", got)
	}
	for _, want := range []string{"client_id=client-123", "response_type=code"} {
		if !strings.Contains(got, want) {
			t.Errorf("AuthCodeURL() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "secret-456") {
		t.Error("AuthCodeURL() leaks the client secret")
	}
}

func TestProvider_Exchange(t *testing.T) {
	t.Run("successful exchange", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("token request method = %s, want POST", r.Method)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parsing token form: %v", err)
			}
			if got := r.PostForm.Get("code"); got != "auth-code-1" {
				t.Errorf("code = %q, want %q", got, "auth-code-1")
			}
			if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
				t.Errorf("grant_type = %q, want authorization_code", got)
			}
			//nolint:errcheck // Test server response
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-789"})
		}))
		defer tokenSrv.Close()

		userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok-789" {
				t.Errorf("Authorization = %q, want Bearer tok-789", got)
			}
			//nolint:errcheck // Test server response
			json.NewEncoder(w).Encode(map[string]string{
				"name":  "Bob",
				"email": "b@x.com",
			})
		}))
		defer userSrv.Close()

		p := New(testConfig(tokenSrv.URL, userSrv.URL), logging.Default())

		id, err := p.Exchange(context.Background(), "auth-code-1")
		if err != nil {
			t.Fatalf("Exchange() error = %v", err)
		}
		if id.Token != "tok-789" {
			t.Errorf("Token = %q, want %q", id.Token, "tok-789")
		}
		if id.Name != "Bob" || id.Email != "b@x.com" {
			t.Errorf("profile = %q/%q, want Bob/b@x.com", id.Name, id.Email)
		}
	})

	t.Run("token endpoint rejects the code", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer tokenSrv.Close()

		p := New(testConfig(tokenSrv.URL, "http://unused.invalid"), logging.Default())

		if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
			t.Error("Exchange() error = nil, want error")
		}
	})

	t.Run("empty access token is an error", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			//nolint:errcheck // Test server response
			json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer tokenSrv.Close()

		p := New(testConfig(tokenSrv.URL, "http://unused.invalid"), logging.Default())

		if _, err := p.Exchange(context.Background(), "code"); err == nil {
			t.Error("Exchange() error = nil, want error")
		}
	})
}
