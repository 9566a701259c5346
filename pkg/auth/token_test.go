package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/config"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "rvstore",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()

	payload := AccessTokenPayload{
		UserID:   17,
		Username: "normal_user",
		Role:     enums.UserRoleUser1,
		JTI:      "session-1",
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != 17 {
		t.Fatalf("expected user_id 17, got %d", claims.UserID)
	}
	if claims.Username != "normal_user" {
		t.Fatalf("unexpected username %q", claims.Username)
	}
	if claims.Role != enums.UserRoleUser1 {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1, got %q", claims.ID)
	}
	if claims.Subject != "17" {
		t.Fatalf("expected subject 17, got %q", claims.Subject)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "rvstore", ExpirationMinutes: 5}
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 1, Role: enums.UserRoleUser2})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "rvstore",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{UserID: 2, Role: enums.UserRoleUser1}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestUserTokenRejectedByAdminSecret(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "user-secret",
		AdminSecret:       "admin-secret",
		Issuer:            "rvstore",
		ExpirationMinutes: 10,
	}
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 3, Role: enums.UserRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg.ForAdmin(), token); err == nil {
		t.Fatal("expected user-signed token to fail admin verification")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "rvstore",
		ExpirationMinutes: 15,
	}
	now := time.Now().Add(-time.Hour)
	payload := AccessTokenPayload{UserID: 4, Role: enums.UserRoleUser1}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("allow expired parse: %v", err)
	}
	if claims.UserID != 4 {
		t.Fatalf("unexpected user id %d", claims.UserID)
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "rvstore",
		ExpirationMinutes: 5,
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 5, Role: ""}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.UserRoleUser1}); err == nil {
		t.Fatal("expected missing user id error")
	}
}
