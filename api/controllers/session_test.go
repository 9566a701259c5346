package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/auth"
	"github.com/angelmondragon/rvstore-backend/pkg/auth/session"
	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

type stubSessionTokenManager struct {
	lastRevoked    string
	lastRotateOld  string
	lastRotateUser int64
	lastRotateBody string
	rotateRespID   string
	rotateRespTok  string
	rotateErr      error
	revokeErr      error
}

func (s *stubSessionTokenManager) Rotate(ctx context.Context, oldAccessID string, userID int64, provided string) (string, string, error) {
	s.lastRotateOld = oldAccessID
	s.lastRotateUser = userID
	s.lastRotateBody = provided
	return s.rotateRespID, s.rotateRespTok, s.rotateErr
}

func (s *stubSessionTokenManager) Revoke(ctx context.Context, accessID string) error {
	s.lastRevoked = accessID
	return s.revokeErr
}

var testJWT = config.JWTConfig{Secret: "secret", AdminSecret: "admin-secret", Issuer: "issuer", ExpirationMinutes: 10}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID int64, role enums.UserRole) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:   userID,
		Username: "tester",
		Role:     role,
		JTI:      accessID,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token, accessID
}

func TestAuthLogout(t *testing.T) {
	manager := &stubSessionTokenManager{}
	handler := AuthLogout(manager, testJWT, nil)

	token, jti := mintTestToken(t, testJWT, 3, enums.UserRoleUser1)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if manager.lastRevoked != jti {
		t.Fatalf("expected revoked %s got %s", jti, manager.lastRevoked)
	}
}

func TestAuthRefresh(t *testing.T) {
	manager := &stubSessionTokenManager{
		rotateRespID:  "new-jti",
		rotateRespTok: "new-refresh",
	}
	handler := AuthRefresh(manager, testJWT, nil)

	token, jti := mintTestToken(t, testJWT, 11, enums.UserRoleUser2)
	body := `{"refreshToken":"old-refresh"}`
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if manager.lastRotateOld != jti || manager.lastRotateUser != 11 || manager.lastRotateBody != "old-refresh" {
		t.Fatalf("unexpected rotate call %+v", manager)
	}
	var envelope struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "new-refresh" {
		t.Fatalf("expected refresh token new-refresh got %s", envelope.Data.RefreshToken)
	}
	if rec.Header().Get(tokenHeader) != envelope.Data.AccessToken {
		t.Fatalf("expected header token match body token")
	}
	claims, err := auth.ParseAccessToken(testJWT, envelope.Data.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.ID != "new-jti" || claims.UserID != 11 || claims.Role != enums.UserRoleUser2 {
		t.Fatalf("unexpected rotated claims %+v", claims)
	}
}

func TestAuthRefreshKeepsAdminSigner(t *testing.T) {
	manager := &stubSessionTokenManager{rotateRespID: "admin-jti", rotateRespTok: "r"}
	handler := AuthRefresh(manager, testJWT, nil)

	token, _ := mintTestToken(t, testJWT.ForAdmin(), 1, enums.UserRoleAdmin)
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(`{"refreshToken":"x"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if _, err := auth.ParseAccessToken(testJWT.ForAdmin(), rec.Header().Get(tokenHeader)); err != nil {
		t.Fatalf("rotated admin token must be signed with the admin secret: %v", err)
	}
}

func TestAuthRefreshInvalidToken(t *testing.T) {
	manager := &stubSessionTokenManager{
		rotateErr: session.ErrInvalidRefreshToken,
	}
	handler := AuthRefresh(manager, testJWT, nil)

	token, _ := mintTestToken(t, testJWT, 4, enums.UserRoleUser1)
	body := `{"refreshToken":"old-refresh"}`
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
