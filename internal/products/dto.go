package product

import (
	"time"

	"github.com/angelmondragon/rvstore-backend/internal/history"
)

// ProductWithPrice is a live product joined with its open price version.
type ProductWithPrice struct {
	ProductID           int64
	Barcode             string
	Name                string
	CategoryID          int64
	CategoryDescription string
	Weight              int64
	PriceID             int64
	BuyPrice            int64
	SellPrice           int64
	Stock               int64
	PriceStartTime      time.Time
}

// ProductDTO is the admin view of a product.
type ProductDTO struct {
	Barcode   string              `json:"barcode"`
	Name      string              `json:"name"`
	Category  history.CategoryRef `json:"category"`
	Weight    int64               `json:"weight"`
	BuyPrice  int64               `json:"buyPrice"`
	SellPrice int64               `json:"sellPrice"`
	Stock     int64               `json:"stock"`
}

// PublicProductDTO is what regular users see; the buy price stays internal.
type PublicProductDTO struct {
	Barcode   string              `json:"barcode"`
	Name      string              `json:"name"`
	Category  history.CategoryRef `json:"category"`
	Weight    int64               `json:"weight"`
	SellPrice int64               `json:"sellPrice"`
	Stock     int64               `json:"stock"`
}

func (p ProductWithPrice) ToDTO() ProductDTO {
	return ProductDTO{
		Barcode: p.Barcode,
		Name:    p.Name,
		Category: history.CategoryRef{
			CategoryID:  p.CategoryID,
			Description: p.CategoryDescription,
		},
		Weight:    p.Weight,
		BuyPrice:  p.BuyPrice,
		SellPrice: p.SellPrice,
		Stock:     p.Stock,
	}
}

func (p ProductDTO) Public() PublicProductDTO {
	return PublicProductDTO{
		Barcode:   p.Barcode,
		Name:      p.Name,
		Category:  p.Category,
		Weight:    p.Weight,
		SellPrice: p.SellPrice,
		Stock:     p.Stock,
	}
}

// CreateProductInput holds the validated payload to create a product.
// A nil SellPrice is derived from BuyPrice and the default margin.
type CreateProductInput struct {
	Barcode    string
	Name       string
	CategoryID int64
	Weight     int64
	BuyPrice   int64
	SellPrice  *int64
	Stock      int64
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name       *string
	CategoryID *int64
	Weight     *int64
	BuyPrice   *int64
	SellPrice  *int64
	Stock      *int64
}

// BuyInInput adds Count loose units, optionally repricing the product.
type BuyInInput struct {
	Count     int64
	BuyPrice  *int64
	SellPrice *int64
}

// BuyInResult is the stock and prices after a buy-in.
type BuyInResult struct {
	Stock     int64 `json:"stock"`
	BuyPrice  int64 `json:"buyPrice"`
	SellPrice int64 `json:"sellPrice"`
}

// StockChange is the requested price and absolute quantity of a product.
type StockChange struct {
	ProductID int64
	BuyPrice  int64
	SellPrice int64
	Quantity  int64
	ActorID   int64
}

// StockAddition adds Added units on top of the current stock. Nil prices keep the current ones.
type StockAddition struct {
	ProductID int64
	Added     int64
	BuyPrice  *int64
	SellPrice *int64
	ActorID   int64
}

// StockChangeResult describes the open price version after a stock change.
type StockChangeResult struct {
	PriceID         int64
	PreviousPriceID int64
	NewVersion      bool
	BuyPrice        int64
	SellPrice       int64
	Stock           int64
	Events          int
}
