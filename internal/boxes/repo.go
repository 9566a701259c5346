package boxes

import (
	"context"
	"strings"

	productsvc "github.com/angelmondragon/rvstore-backend/internal/products"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists boxes.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a boxes repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

var boxColumns = []string{
	"b.box_barcode",
	"b.items_per_box",
	"p.id AS product_id",
	"p.barcode",
	"p.name",
	"p.category_id",
	"c.description AS category_description",
	"p.weight",
	"pv.id AS price_id",
	"pv.buy_price",
	"pv.sell_price",
	"pv.stock",
}

func (r *Repository) boxQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("boxes b").
		Select(strings.Join(boxColumns, ", ")).
		Joins("JOIN products p ON p.id = b.product_id").
		Joins("JOIN price_versions pv ON pv.product_id = p.id AND pv.end_time IS NULL").
		Joins("JOIN categories c ON c.id = p.category_id")
}

// List returns every box with its product, ordered by box barcode.
func (r *Repository) List(ctx context.Context) ([]BoxWithProduct, error) {
	var records []boxRecord
	if err := r.boxQuery(ctx).Order("b.box_barcode ASC").Scan(&records).Error; err != nil {
		return nil, err
	}
	out := make([]BoxWithProduct, 0, len(records))
	for _, record := range records {
		out = append(out, record.toBox())
	}
	return out, nil
}

// Find loads one box with its product; gorm.ErrRecordNotFound when absent.
func (r *Repository) Find(ctx context.Context, boxBarcode string) (*BoxWithProduct, error) {
	var records []boxRecord
	if err := r.boxQuery(ctx).Where("b.box_barcode = ?", boxBarcode).Limit(1).Scan(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	box := records[0].toBox()
	return &box, nil
}

// Lock reads the box row with SELECT ... FOR UPDATE.
func (r *Repository) Lock(ctx context.Context, boxBarcode string) (*models.Box, error) {
	var box models.Box
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("box_barcode = ?", boxBarcode).
		First(&box).Error; err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *Repository) Exists(ctx context.Context, boxBarcode string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("box_barcode = ?", boxBarcode).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, box *models.Box) error {
	return r.db.WithContext(ctx).Create(box).Error
}

func (r *Repository) Update(ctx context.Context, boxBarcode string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("box_barcode = ?", boxBarcode).
		Updates(updates).Error
}

func (r *Repository) Delete(ctx context.Context, boxBarcode string) error {
	return r.db.WithContext(ctx).
		Where("box_barcode = ?", boxBarcode).
		Delete(&models.Box{}).Error
}

type boxRecord struct {
	BoxBarcode          string `gorm:"column:box_barcode"`
	ItemsPerBox         int64  `gorm:"column:items_per_box"`
	ProductID           int64  `gorm:"column:product_id"`
	Barcode             string `gorm:"column:barcode"`
	Name                string `gorm:"column:name"`
	CategoryID          int64  `gorm:"column:category_id"`
	CategoryDescription string `gorm:"column:category_description"`
	Weight              int64  `gorm:"column:weight"`
	PriceID             int64  `gorm:"column:price_id"`
	BuyPrice            int64  `gorm:"column:buy_price"`
	SellPrice           int64  `gorm:"column:sell_price"`
	Stock               int64  `gorm:"column:stock"`
}

func (r boxRecord) toBox() BoxWithProduct {
	return BoxWithProduct{
		BoxBarcode:  r.BoxBarcode,
		ItemsPerBox: r.ItemsPerBox,
		Product: productsvc.ProductWithPrice{
			ProductID:           r.ProductID,
			Barcode:             r.Barcode,
			Name:                r.Name,
			CategoryID:          r.CategoryID,
			CategoryDescription: r.CategoryDescription,
			Weight:              r.Weight,
			PriceID:             r.PriceID,
			BuyPrice:            r.BuyPrice,
			SellPrice:           r.SellPrice,
			Stock:               r.Stock,
		},
	}
}
