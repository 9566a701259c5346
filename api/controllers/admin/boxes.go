package admin

import (
	"net/http"

	"github.com/angelmondragon/rvstore-backend/api/responses"
	"github.com/angelmondragon/rvstore-backend/api/validators"
	"github.com/angelmondragon/rvstore-backend/internal/boxes"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
)

type createBoxRequest struct {
	BoxBarcode     string `json:"boxBarcode" validate:"required,max=128,barcode"`
	ItemsPerBox    int64  `json:"itemsPerBox" validate:"required,gte=1"`
	ProductBarcode string `json:"productBarcode" validate:"required,max=128,barcode"`
}

type updateBoxRequest struct {
	ItemsPerBox    *int64  `json:"itemsPerBox" validate:"omitempty,gte=1"`
	ProductBarcode *string `json:"productBarcode" validate:"omitempty,min=1,max=128,barcode"`
}

type boxBuyInRequest struct {
	BoxCount         int64  `json:"boxCount" validate:"required,gte=1"`
	ProductBuyPrice  *int64 `json:"productBuyPrice" validate:"omitempty,gte=0"`
	ProductSellPrice *int64 `json:"productSellPrice" validate:"omitempty,gte=0"`
}

func ListBoxes(svc boxes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("boxes"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"boxes": list})
	}
}

func CreateBox(svc boxes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("boxes"))
			return
		}
		var body createBoxRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		box, err := svc.Create(r.Context(), boxes.CreateBoxInput{
			BoxBarcode:     body.BoxBarcode,
			ItemsPerBox:    body.ItemsPerBox,
			ProductBarcode: body.ProductBarcode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"box": box})
	}
}

func GetBox(svc boxes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("boxes"))
			return
		}
		boxBarcode, err := validators.PathString(r, "boxBarcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		box, err := svc.Get(r.Context(), boxBarcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"box": box})
	}
}

func UpdateBox(svc boxes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("boxes"))
			return
		}
		boxBarcode, err := validators.PathString(r, "boxBarcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateBoxRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		box, err := svc.Update(r.Context(), boxBarcode, boxes.UpdateBoxInput{
			ItemsPerBox:    body.ItemsPerBox,
			ProductBarcode: body.ProductBarcode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"box": box})
	}
}

func DeleteBox(svc boxes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("boxes"))
			return
		}
		boxBarcode, err := validators.PathString(r, "boxBarcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		box, err := svc.Delete(r.Context(), boxBarcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deletedBox": box})
	}
}

// BoxBuyIn restocks the box's product by whole boxes.
func BoxBuyIn(svc boxes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("boxes"))
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		boxBarcode, err := validators.PathString(r, "boxBarcode", maxBarcodeLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body boxBuyInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.BuyIn(r.Context(), actor, boxBarcode, boxes.BuyInInput{
			BoxCount:         body.BoxCount,
			ProductBuyPrice:  body.ProductBuyPrice,
			ProductSellPrice: body.ProductSellPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
