package boxes

import (
	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
)

// BoxWithProduct is a box joined with its product's open price version.
type BoxWithProduct struct {
	BoxBarcode  string
	ItemsPerBox int64
	Product     productsvc.ProductWithPrice
}

// BoxDTO is the wire form of a box.
type BoxDTO struct {
	BoxBarcode  string                `json:"boxBarcode"`
	ItemsPerBox int64                 `json:"itemsPerBox"`
	Product     productsvc.ProductDTO `json:"product"`
}

func (b BoxWithProduct) ToDTO() BoxDTO {
	return BoxDTO{
		BoxBarcode:  b.BoxBarcode,
		ItemsPerBox: b.ItemsPerBox,
		Product:     b.Product.ToDTO(),
	}
}

// CreateBoxInput registers a box of ItemsPerBox units of the product with ProductBarcode.
type CreateBoxInput struct {
	BoxBarcode     string
	ItemsPerBox    int64
	ProductBarcode string
}

// UpdateBoxInput holds optional box changes.
type UpdateBoxInput struct {
	ItemsPerBox    *int64
	ProductBarcode *string
}

// BuyInInput adds BoxCount boxes worth of units, optionally repricing the product.
type BuyInInput struct {
	BoxCount         int64
	ProductBuyPrice  *int64
	ProductSellPrice *int64
}

// BuyInResult is the product state after a box buy-in.
type BuyInResult struct {
	ProductStock     int64 `json:"productStock"`
	ProductBuyPrice  int64 `json:"productBuyPrice"`
	ProductSellPrice int64 `json:"productSellPrice"`
}
