package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	"github.com/angelmondragon/rvstore-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

// tokenHeader carries the access token next to the JSON body so terminal
// clients can pick it up without parsing the envelope.
const tokenHeader = "X-RV-Token"

type loginFunc func(context.Context, auth.LoginRequest) (*auth.LoginResponse, error)

// AuthLogin authenticates a store user.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return loginHandler(nil, logg)
	}
	return loginHandler(svc.Login, logg)
}

// AdminAuthLogin authenticates against the admin signer; non-admins get 403.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return loginHandler(nil, logg)
	}
	return loginHandler(svc.AdminLogin, logg)
}

func loginHandler(login loginFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if login == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
