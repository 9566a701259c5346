package product

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository wires together product and price version persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

var currentColumns = []string{
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
	"pv.start_time",
}

// ListFilter narrows the current product listing.
type ListFilter struct {
	CategoryID int64
	Query      string
}

func (r *Repository) currentQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join(currentColumns, ", ")).
		Joins("JOIN price_versions pv ON pv.product_id = p.id AND pv.end_time IS NULL").
		Joins("JOIN categories c ON c.id = p.category_id").
		Where("p.deleted = ?", false)
}

// FindCurrentByBarcode loads a live product joined with its open price version.
// gorm.ErrRecordNotFound is returned when nothing matches.
func (r *Repository) FindCurrentByBarcode(ctx context.Context, barcode string) (*ProductWithPrice, error) {
	return r.findCurrent(r.currentQuery(ctx).Where("p.barcode = ?", barcode))
}

// FindCurrentByID is FindCurrentByBarcode keyed by product id.
func (r *Repository) FindCurrentByID(ctx context.Context, productID int64) (*ProductWithPrice, error) {
	return r.findCurrent(r.currentQuery(ctx).Where("p.id = ?", productID))
}

func (r *Repository) findCurrent(qb *gorm.DB) (*ProductWithPrice, error) {
	var records []currentRecord
	if err := qb.Limit(1).Scan(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	current := records[0].toProductWithPrice()
	return &current, nil
}

// ListCurrent returns live products with their open price versions ordered by name.
func (r *Repository) ListCurrent(ctx context.Context, filter ListFilter) ([]ProductWithPrice, error) {
	qb := r.currentQuery(ctx)
	if filter.CategoryID > 0 {
		qb = qb.Where("p.category_id = ?", filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR p.barcode LIKE ?)", like, like)
	}

	var records []currentRecord
	if err := qb.Order("p.name ASC").Order("p.id ASC").Scan(&records).Error; err != nil {
		return nil, err
	}
	out := make([]ProductWithPrice, 0, len(records))
	for _, record := range records {
		out = append(out, record.toProductWithPrice())
	}
	return out, nil
}

// LockOpenPrice reads the open price version of a product with SELECT ... FOR UPDATE.
func (r *Repository) LockOpenPrice(ctx context.Context, productID int64) (*models.PriceVersion, error) {
	var price models.PriceVersion
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND end_time IS NULL", productID).
		First(&price).Error; err != nil {
		return nil, err
	}
	return &price, nil
}

// UpdateStock rewrites the stock of a price version in place.
func (r *Repository) UpdateStock(ctx context.Context, priceID, stock int64) error {
	return r.db.WithContext(ctx).
		Model(&models.PriceVersion{}).
		Where("id = ?", priceID).
		Update("stock", stock).Error
}

// RetirePrice closes a price version: it stops being current and holds no stock.
func (r *Repository) RetirePrice(ctx context.Context, priceID int64, endTime time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PriceVersion{}).
		Where("id = ? AND end_time IS NULL", priceID).
		Updates(map[string]any{"end_time": endTime, "stock": 0}).Error
}

func (r *Repository) CreatePrice(ctx context.Context, price *models.PriceVersion) error {
	return r.db.WithContext(ctx).Create(price).Error
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// LockProduct reads a live product row with SELECT ... FOR UPDATE.
func (r *Repository) LockProduct(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("barcode = ? AND deleted = ?", barcode, false).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockProductByID is LockProduct keyed by product id.
func (r *Repository) LockProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted = ?", productID, false).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) UpdateProductFields(ctx context.Context, productID int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(updates).Error
}

func (r *Repository) SoftDelete(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("deleted", true).Error
}

// BarcodeTaken reports whether a live product already uses the barcode.
func (r *Repository) BarcodeTaken(ctx context.Context, barcode string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("barcode = ? AND deleted = ?", barcode, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CategoryExists reports whether a live category has the id.
func (r *Repository) CategoryExists(ctx context.Context, categoryID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND deleted = ?", categoryID, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type currentRecord struct {
	ProductID           int64     `gorm:"column:product_id"`
	Barcode             string    `gorm:"column:barcode"`
	Name                string    `gorm:"column:name"`
	CategoryID          int64     `gorm:"column:category_id"`
	CategoryDescription string    `gorm:"column:category_description"`
	Weight              int64     `gorm:"column:weight"`
	PriceID             int64     `gorm:"column:price_id"`
	BuyPrice            int64     `gorm:"column:buy_price"`
	SellPrice           int64     `gorm:"column:sell_price"`
	Stock               int64     `gorm:"column:stock"`
	StartTime           time.Time `gorm:"column:start_time"`
}

func (r currentRecord) toProductWithPrice() ProductWithPrice {
	return ProductWithPrice{
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
		PriceStartTime:      r.StartTime,
	}
}
