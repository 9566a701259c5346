package categories

import (
	"context"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists product categories.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a categories repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindLive loads a category that is not deleted.
func (r *Repository) FindLive(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// LockLive is FindLive with SELECT ... FOR UPDATE.
func (r *Repository) LockLive(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted = ?", id, false).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// CategoryExists reports whether a live category has the id.
func (r *Repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND deleted = ?", id, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) UpdateDescription(ctx context.Context, id int64, description string) error {
	return r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", id).
		Update("description", description).Error
}

func (r *Repository) MarkDeleted(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}

// Member is a live product of a category with its open price version.
type Member struct {
	ProductID int64  `gorm:"column:product_id"`
	Barcode   string `gorm:"column:barcode"`
	PriceID   int64  `gorm:"column:price_id"`
	Stock     int64  `gorm:"column:stock"`
}

// ListMembers returns the live products filed under the category.
func (r *Repository) ListMembers(ctx context.Context, id int64) ([]Member, error) {
	var members []Member
	if err := r.db.WithContext(ctx).
		Table("products p").
		Select("p.id AS product_id, p.barcode, pv.id AS price_id, pv.stock").
		Joins("JOIN price_versions pv ON pv.product_id = p.id AND pv.end_time IS NULL").
		Where("p.category_id = ? AND p.deleted = ?", id, false).
		Order("p.id ASC").
		Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// MoveProducts refiles every product of one category under another.
func (r *Repository) MoveProducts(ctx context.Context, from, to int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ?", from).
		Update("category_id", to).Error
}
