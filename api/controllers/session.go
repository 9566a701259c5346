package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/angelmondragon/rvstore-backend/api/middleware"
	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	pkgAuth "github.com/angelmondragon/rvstore-backend/pkg/auth"
	"github.com/angelmondragon/rvstore-backend/pkg/auth/session"
	"github.com/angelmondragon/rvstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID string, userID int64, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// parseSessionToken accepts user and admin tokens alike, ignoring expiry, and
// returns the config that signed it so a rotated token keeps the same audience.
func parseSessionToken(r *http.Request, cfg config.JWTConfig) (*pkgAuth.AccessTokenClaims, config.JWTConfig, error) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		return nil, cfg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	signer := cfg
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(signer, token)
	if err != nil && cfg.AdminSecret != "" {
		signer = cfg.ForAdmin()
		claims, err = pkgAuth.ParseAccessTokenAllowExpired(signer, token)
	}
	if err != nil {
		return nil, cfg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, cfg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, signer, nil
}

// AuthLogout revokes the refresh mapping tied to the presented access token.
func AuthLogout(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		claims, _, err := parseSessionToken(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := manager.Revoke(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token and issues a new access token.
func AuthRefresh(manager sessionTokenRotator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, signer, err := parseSessionToken(r, cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		newAccessID, newRefreshToken, err := manager.Rotate(r.Context(), claims.ID, claims.UserID, body.RefreshToken)
		if err != nil {
			if errors.Is(err, session.ErrInvalidRefreshToken) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session"))
			return
		}

		payload := pkgAuth.AccessTokenPayload{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
			JTI:      newAccessID,
		}

		now := time.Now().UTC()
		accessToken, err := pkgAuth.MintAccessToken(signer, now, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt"))
			return
		}

		w.Header().Set(tokenHeader, accessToken)
		responses.WriteSuccess(w, refreshResponse{
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
		})
	}
}
