package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lablink/dispatcher-core/internal/broker"
	"github.com/lablink/dispatcher-core/internal/infrastructure/config"
	"github.com/lablink/dispatcher-core/internal/infrastructure/logging"
	"github.com/lablink/dispatcher-core/internal/registry"
	"github.com/lablink/dispatcher-core/internal/session"
)

// newTestServer builds a server wired against an in-memory database and
// returns its router for request tests.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			device_id       TEXT PRIMARY KEY,
			type            TEXT NOT NULL,
			ip              TEXT NOT NULL,
			port            INTEGER NOT NULL,
			subnet          TEXT NOT NULL DEFAULT '',
			is_public       INTEGER NOT NULL DEFAULT 0,
			connection_code TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			UNIQUE (ip, port),
			UNIQUE (connection_code)
		) STRICT;
		CREATE TABLE interfaces (
			interface_id TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			email        TEXT NOT NULL,
			device_code  TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			UNIQUE (email, device_code)
		) STRICT;
		CREATE TABLE sessions (
			device_id    TEXT PRIMARY KEY,
			transport_id TEXT NOT NULL,
			interface_id TEXT,
			updated_at   TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	logger := logging.Default()
	repo := registry.NewSQLiteRepository(db)
	store := session.NewSQLiteStore(db)
	hub := NewHub(config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}, logger)
	announcer := broker.NewAnnouncer(hub, nil, nil, logger)
	b := broker.New(repo, store, announcer, logger)
	hub.SetBroker(b)

	srv, err := New(Deps{
		Config: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
			Timeouts: config.ServerTimeoutConfig{
				Read: 30, Write: 30, Idle: 60,
			},
		},
		WS:        hub.cfg,
		Logger:    logger,
		Registry:  repo,
		Sessions:  store,
		Broker:    b,
		Announcer: announcer,
		Hub:       hub,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return srv, srv.buildRouter()
}

// doJSON issues a request with a JSON body and decodes the JSON response.
func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		var parsed any
		if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
			t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
		}
		decoded, _ = parsed.(map[string]any)
	}

	return rec, decoded
}

func TestHandlePing(t *testing.T) {
	_, router := newTestServer(t)

	rec, body := doJSON(t, router, http.MethodGet, "/ping", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["timestamp"] == nil {
		t.Error("timestamp missing from ping response")
	}
}

func TestHandleRegisterDevice(t *testing.T) {
	t.Run("registers and returns connection code", func(t *testing.T) {
		_, router := newTestServer(t)

		rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", map[string]any{
			"type":   "scope",
			"ip":     "10.0.0.5",
			"port":   9000,
			"subnet": "10.0.0.0/24",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %v)", rec.Code, body)
		}
		if body["device_id"] == "" || body["device_id"] == nil {
			t.Error("device_id missing from response")
		}
		if code, _ := body["connection_code"].(string); len(code) != 8 {
			t.Errorf("connection_code = %v, want 8 characters", body["connection_code"])
		}
	})

	t.Run("missing field is rejected before any mutation", func(t *testing.T) {
		_, router := newTestServer(t)

		rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", map[string]any{
			"ip":   "10.0.0.5",
			"port": 9000,
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body["code"] != ErrCodeValidation {
			t.Errorf("code = %v, want %q", body["code"], ErrCodeValidation)
		}

		rec, devices := doJSON(t, router, http.MethodGet, "/admin/devices", nil)
		_ = devices
		if rec.Code != http.StatusOK {
			t.Fatalf("admin listing status = %d", rec.Code)
		}
		if rec.Body.String() != "[]\n" {
			t.Errorf("devices = %s, want empty array", rec.Body.String())
		}
	})

	t.Run("duplicate ip and port yields conflict", func(t *testing.T) {
		_, router := newTestServer(t)

		payload := map[string]any{"type": "scope", "ip": "10.0.0.5", "port": 9000}
		if rec, _ := doJSON(t, router, http.MethodPost, "/api/register_device", payload); rec.Code != http.StatusCreated {
			t.Fatalf("first register status = %d", rec.Code)
		}

		rec, body := doJSON(t, router, http.MethodPost, "/api/register_device", payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body["code"] != ErrCodeConflict {
			t.Errorf("code = %v, want %q", body["code"], ErrCodeConflict)
		}
		if body["reason"] == nil {
			t.Error("reason missing from conflict response")
		}
	})
}

func TestHandleDeleteDevice(t *testing.T) {
	_, router := newTestServer(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/register_device", map[string]any{
		"type": "scope", "ip": "10.0.0.5", "port": 9000,
	})
	deviceID, _ := created["device_id"].(string)
	if deviceID == "" {
		t.Fatal("register did not return a device id")
	}

	rec, body := doJSON(t, router, http.MethodDelete, "/api/delete_device/"+deviceID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["deviceId"] != deviceID {
		t.Errorf("deviceId = %v, want %s", body["deviceId"], deviceID)
	}

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/delete_device/"+deviceID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandleRegisterInterface(t *testing.T) {
	t.Run("registers with device enrichment", func(t *testing.T) {
		_, router := newTestServer(t)

		_, dev := doJSON(t, router, http.MethodPost, "/api/register_device", map[string]any{
			"type": "scope", "ip": "10.0.0.5", "port": 9000, "subnet": "10.0.0.0/24",
		})
		code, _ := dev["connection_code"].(string)

		rec, body := doJSON(t, router, http.MethodPost, "/api/register_interface", map[string]any{
			"name": "Bob", "email": "b@x.com", "deviceCode": code,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %v)", rec.Code, body)
		}
		if body["type"] != "scope" {
			t.Errorf("type enrichment = %v, want scope", body["type"])
		}
		if body["subnet"] != "10.0.0.0/24" {
			t.Errorf("subnet enrichment = %v, want 10.0.0.0/24", body["subnet"])
		}
	})

	t.Run("unknown device code is null enrichment, not an error", func(t *testing.T) {
		_, router := newTestServer(t)

		rec, body := doJSON(t, router, http.MethodPost, "/api/register_interface", map[string]any{
			"name": "Bob", "email": "b@x.com", "deviceCode": "NOPE9999",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %v)", rec.Code, body)
		}
		if body["type"] != nil {
			t.Errorf("type = %v, want null", body["type"])
		}
	})

	t.Run("duplicate email and code yields conflict", func(t *testing.T) {
		_, router := newTestServer(t)

		payload := map[string]any{"name": "Bob", "email": "b@x.com", "deviceCode": "AAAA1111"}
		if rec, _ := doJSON(t, router, http.MethodPost, "/api/register_interface", payload); rec.Code != http.StatusCreated {
			t.Fatalf("first register status = %d", rec.Code)
		}

		rec, body := doJSON(t, router, http.MethodPost, "/api/register_interface", payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if body["code"] != ErrCodeConflict {
			t.Errorf("code = %v, want %q", body["code"], ErrCodeConflict)
		}
	})
}

func TestHandleInterfacesByEmail(t *testing.T) {
	_, router := newTestServer(t)

	t.Run("missing email is rejected", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/api/interfaces_by_email", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("lists only the owner's interfaces", func(t *testing.T) {
		for _, p := range []map[string]any{
			{"name": "Bob", "email": "b@x.com", "deviceCode": "AAAA1111"},
			{"name": "Bob", "email": "b@x.com", "deviceCode": "BBBB2222"},
			{"name": "Carol", "email": "c@x.com", "deviceCode": "CCCC3333"},
		} {
			if rec, _ := doJSON(t, router, http.MethodPost, "/api/register_interface", p); rec.Code != http.StatusCreated {
				t.Fatalf("register status = %d", rec.Code)
			}
		}

		req := httptest.NewRequest(http.MethodGet, "/api/interfaces_by_email?email=b@x.com", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var list []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("decoding list: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("len(list) = %d, want 2", len(list))
		}
	})
}

func TestHandleAdminSession(t *testing.T) {
	srv, router := newTestServer(t)

	t.Run("miss yields 404", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodGet, "/admin/sessions/dev-none", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("hit returns the session", func(t *testing.T) {
		if err := srv.sessions.UpsertTransport(context.Background(), "dev-1", "t-1"); err != nil {
			t.Fatalf("UpsertTransport() error = %v", err)
		}

		rec, body := doJSON(t, router, http.MethodGet, "/admin/sessions/dev-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if body["transport_id"] != "t-1" {
			t.Errorf("transport_id = %v, want t-1", body["transport_id"])
		}
	})
}

func TestHandleAuthLogin_Disabled(t *testing.T) {
	_, router := newTestServer(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/auth/login", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when identity is not configured", rec.Code)
	}
}
