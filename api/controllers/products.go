package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/internal/purchases"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

const maxBarcodeLength = 128

type purchaseRequest struct {
	Count int `json:"count" validate:"required,gte=1"`
}

// ListProducts returns the catalogue without buy prices.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.ParseQueryInt64(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), productsvc.ListFilter{
			CategoryID: categoryID,
			Query:      strings.TrimSpace(r.URL.Query().Get("q")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productsvc.PublicProductDTO, 0, len(list))
		for _, product := range list {
			out = append(out, product.Public())
		}
		responses.WriteSuccess(w, map[string]any{"products": out})
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barcode, err := validators.PathString(r, "barcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"product": product.Public()})
	}
}

// PurchaseProduct buys count units of the product for the authenticated user.
func PurchaseProduct(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		barcode, err := validators.PathString(r, "barcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchaseRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordPurchase(r.Context(), purchases.PurchaseInput{
			Barcode: barcode,
			UserID:  userID,
			Count:   body.Count,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
