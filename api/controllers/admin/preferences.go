package admin

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	"github.com/angelmondragon/rvstore-backend/internal/preferences"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

type preferenceRequest struct {
	Value string `json:"value" validate:"required,max=255"`
}

type defaultMarginRequest struct {
	DefaultMargin decimal.Decimal `json:"defaultMargin"`
}

type defaultMarginResponse struct {
	DefaultMargin decimal.Decimal `json:"defaultMargin"`
}

func preferenceKey(r *http.Request) (enums.PreferenceKey, error) {
	raw, err := validators.PathString(r, "key", 64)
	if err != nil {
		return "", err
	}
	key, err := enums.ParsePreferenceKey(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "preference not found").
			WithDetails(map[string]any{"key": raw})
	}
	return key, nil
}

func ListPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("preferences"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"preferences": list})
	}
}

func GetPreference(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("preferences"))
			return
		}
		key, err := preferenceKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pref, err := svc.Get(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"preference": pref})
	}
}

func UpdatePreference(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("preferences"))
			return
		}
		key, err := preferenceKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body preferenceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pref, err := svc.Set(r.Context(), key, body.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"preference": pref})
	}
}

func GetDefaultMargin(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("preferences"))
			return
		}
		margin, err := svc.DefaultMargin(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, defaultMarginResponse{DefaultMargin: margin})
	}
}

// UpdateDefaultMargin stores the margin used to derive sell prices.
func UpdateDefaultMargin(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("preferences"))
			return
		}
		var body defaultMarginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		margin, err := svc.SetDefaultMargin(r.Context(), body.DefaultMargin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, defaultMarginResponse{DefaultMargin: margin})
	}
}
