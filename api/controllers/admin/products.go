package admin

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rvstore-backend/api/middleware"
	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	"github.com/angelmondragon/rvstore-backend/internal/history"
	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

const maxBarcodeLength = 128

type createProductRequest struct {
	Barcode    string `json:"barcode" validate:"required,max=128,barcode"`
	Name       string `json:"name" validate:"required,max=255"`
	CategoryID int64  `json:"categoryId" validate:"required,gt=0"`
	Weight     int64  `json:"weight" validate:"gte=0"`
	BuyPrice   int64  `json:"buyPrice" validate:"gte=0"`
	SellPrice  *int64 `json:"sellPrice" validate:"omitempty,gte=0"`
	Stock      int64  `json:"stock"`
}

type updateProductRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	CategoryID *int64  `json:"categoryId" validate:"omitempty,gt=0"`
	Weight     *int64  `json:"weight" validate:"omitempty,gte=0"`
	BuyPrice   *int64  `json:"buyPrice" validate:"omitempty,gte=0"`
	SellPrice  *int64  `json:"sellPrice" validate:"omitempty,gte=0"`
	Stock      *int64  `json:"stock"`
}

type productBuyInRequest struct {
	Count     int64  `json:"count" validate:"required,gte=1"`
	BuyPrice  *int64 `json:"buyPrice" validate:"omitempty,gte=0"`
	SellPrice *int64 `json:"sellPrice" validate:"omitempty,gte=0"`
}

// actorID returns the admin performing the request.
func actorID(r *http.Request) (int64, error) {
	id := middleware.UserIDFromContext(r.Context())
	if id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("products"))
			return
		}
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
		responses.WriteSuccess(w, map[string]any{"products": list})
	}
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("products"))
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actor, productsvc.CreateProductInput{
			Barcode:    body.Barcode,
			Name:       body.Name,
			CategoryID: body.CategoryID,
			Weight:     body.Weight,
			BuyPrice:   body.BuyPrice,
			SellPrice:  body.SellPrice,
			Stock:      body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"product": product})
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("products"))
			return
		}
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
		responses.WriteSuccess(w, map[string]any{"product": product})
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("products"))
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		barcode, err := validators.PathString(r, "barcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), actor, barcode, productsvc.UpdateProductInput{
			Name:       body.Name,
			CategoryID: body.CategoryID,
			Weight:     body.Weight,
			BuyPrice:   body.BuyPrice,
			SellPrice:  body.SellPrice,
			Stock:      body.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"product": product})
	}
}

// DeleteProduct soft-deletes the product and returns its last known state.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("products"))
			return
		}
		barcode, err := validators.PathString(r, "barcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Delete(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deletedProduct": product})
	}
}

func ProductBuyIn(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("products"))
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		barcode, err := validators.PathString(r, "barcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body productBuyInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BuyIn(r.Context(), actor, barcode, productsvc.BuyInInput{
			Count:     body.Count,
			BuyPrice:  body.BuyPrice,
			SellPrice: body.SellPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductPurchaseHistory(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("history"))
			return
		}
		barcode, err := validators.PathString(r, "barcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPurchasesByProduct(r.Context(), barcode, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
