package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

func TestLoggingRecordsRouteBarcodeAndCaller(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Format: logger.FormatJSON, Output: buf})
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.With(Auth(cfg, stubSessionVerifier{ok: true}, nil)).Post("/api/v1/products/{barcode}/purchase", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/6415600501811/purchase", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, 42, enums.UserRoleUser1))
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastEntry(t, buf)
	if entry["message"] != "request.complete" || entry["level"] != "info" {
		t.Fatalf("expected info request.complete, got %v", entry)
	}
	if entry["route"] != "/api/v1/products/{barcode}/purchase" {
		t.Fatalf("expected route pattern, got %v", entry["route"])
	}
	if entry["barcode"] != "6415600501811" {
		t.Fatalf("expected barcode, got %v", entry["barcode"])
	}
	if entry["user_id"] != float64(42) || entry["actor_role"] != string(enums.UserRoleUser1) {
		t.Fatalf("expected caller fields, got %v", entry)
	}
	if entry["status"] != float64(http.StatusConflict) {
		t.Fatalf("expected status 409, got %v", entry["status"])
	}
}

func TestLoggingLevelsFollowStatus(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		status  int
		level   string
		message string
	}{
		{name: "server error", path: "/boom", status: http.StatusInternalServerError, level: "warn", message: "request.failed"},
		{name: "health", path: "/health/live", status: http.StatusOK, level: "debug", message: "request.complete"},
		{name: "anonymous ok", path: "/api/v1/categories", status: http.StatusOK, level: "info", message: "request.complete"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Format: logger.FormatJSON, Output: buf})
			handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			entry := lastEntry(t, buf)
			if entry["level"] != tc.level || entry["message"] != tc.message {
				t.Fatalf("expected %s %s, got %v", tc.level, tc.message, entry)
			}
			if _, ok := entry["user_id"]; ok {
				t.Fatalf("anonymous request must not carry user_id: %v", entry)
			}
		})
	}
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) == 0 || len(lines[0]) == 0 {
		t.Fatalf("expected a log entry")
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("decode entry %q: %v", lines[len(lines)-1], err)
	}
	return entry
}
