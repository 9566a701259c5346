package preferences

import (
	"context"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists key/value preferences.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a preferences repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Get loads one preference; gorm.ErrRecordNotFound when unset.
func (r *Repository) Get(ctx context.Context, key string) (*models.Preference, error) {
	var pref models.Preference
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Preference, error) {
	var prefs []models.Preference
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}

// Upsert writes the value, inserting the row when missing.
func (r *Repository) Upsert(ctx context.Context, pref *models.Preference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(pref).Error
}
