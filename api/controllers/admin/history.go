package admin

import (
	"net/http"

	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	"github.com/angelmondragon/rvstore-backend/internal/history"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

func PurchaseHistory(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("history"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPurchases(r.Context(), history.PurchaseFilter{}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Purchase(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("history"))
			return
		}
		purchaseID, err := validators.PathInt64(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purchase, err := svc.FindPurchase(r.Context(), history.PurchaseFilter{PurchaseID: purchaseID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"purchase": purchase})
	}
}

func DepositHistory(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("history"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListDeposits(r.Context(), history.DepositFilter{}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Deposit(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("history"))
			return
		}
		depositID, err := validators.PathInt64(r, "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deposit, err := svc.FindDeposit(r.Context(), history.DepositFilter{DepositID: depositID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deposit": deposit})
	}
}
