package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/rvstore-backend/internal/auth"
	"github.com/angelmondragon/rvstore-backend/internal/users"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
)

type stubAuthService struct {
	resp      *auth.LoginResponse
	err       error
	adminCall bool
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.resp, s.err
}

func (s *stubAuthService) AdminLogin(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.adminCall = true
	return s.resp, s.err
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{resp: &auth.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         &users.UserDTO{UserID: 1, Username: "normal_user", Role: enums.UserRoleUser1},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/authenticate", bytes.NewBufferString(`{"username":"normal_user","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(tokenHeader); got != "access" {
		t.Fatalf("expected token header, got %q", got)
	}

	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.User == nil || envelope.Data.User.Username != "normal_user" {
		t.Fatalf("unexpected user %+v", envelope.Data.User)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authenticate", bytes.NewBufferString(`{"username":"normal_user","password":"wrong"}`))
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get(tokenHeader) != "" {
		t.Fatal("token header must not be set on failure")
	}
}

func TestAuthLoginMissingPassword(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/authenticate", bytes.NewBufferString(`{"username":"normal_user"}`))
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminAuthLoginForbidden(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to view admin page")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/authenticate", bytes.NewBufferString(`{"username":"normal_user","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	AdminAuthLogin(svc, nil).ServeHTTP(rec, req)

	if !svc.adminCall {
		t.Fatal("expected AdminLogin to be called")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
