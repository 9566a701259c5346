package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/auth"
	"github.com/angelmondragon/rvstore-backend/pkg/auth/session"
	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token := mintTestToken(t, cfg, 42, enums.UserRoleUser1)

	var captured struct {
		user     int64
		username string
		role     enums.UserRole
	}
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.username = UsernameFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != 42 {
		t.Fatalf("expected user id 42 in context, got %d", captured.user)
	}
	if captured.username != "user42" {
		t.Fatalf("expected username in context, got %q", captured.username)
	}
	if captured.role != enums.UserRoleUser1 {
		t.Fatalf("expected role USER1 got %s", captured.role)
	}
}

func TestAuthRejectsTokenSignedWithOtherSecret(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", AdminSecret: "admin-secret", Issuer: "issuer", ExpirationMinutes: 60}
	userToken := mintTestToken(t, cfg, 1, enums.UserRoleAdmin)

	handler := Auth(cfg.ForAdmin(), stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("user token on admin route: expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token := mintTestToken(t, cfg, 5, enums.UserRoleUser1)

	cases := map[string]struct {
		verifier stubSessionVerifier
		want     int
	}{
		"revoked":    {verifier: stubSessionVerifier{ok: false}, want: http.StatusUnauthorized},
		"redis down": {verifier: stubSessionVerifier{err: errors.New("dial tcp")}, want: http.StatusServiceUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := Auth(cfg, tc.verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.UserRoleAdmin, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for role, want := range map[enums.UserRole]int{
		enums.UserRoleAdmin: http.StatusOK,
		enums.UserRoleUser2: http.StatusForbidden,
		"":                  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: expected %d got %d", role, want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID int64, role enums.UserRole) string {
	t.Helper()
	payload := auth.AccessTokenPayload{
		UserID:   userID,
		Username: "user" + strconv.FormatInt(userID, 10),
		Role:     role,
		JTI:      session.NewAccessID(),
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}
