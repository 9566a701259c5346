package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fallbackCategoryID is used when defaultProductCategory was never stored.
const fallbackCategoryID int64 = 1

// Preference is the wire form of one setting.
type Preference struct {
	Key   enums.PreferenceKey `json:"key"`
	Value string              `json:"value"`
}

// CategoryLookup checks that a live category exists.
type CategoryLookup interface {
	CategoryExists(ctx context.Context, categoryID int64) (bool, error)
}

// Service reads and validates store wide preferences.
type Service interface {
	List(ctx context.Context) ([]Preference, error)
	Get(ctx context.Context, key enums.PreferenceKey) (*Preference, error)
	Set(ctx context.Context, key enums.PreferenceKey, value string) (*Preference, error)
	DefaultMargin(ctx context.Context) (decimal.Decimal, error)
	SetDefaultMargin(ctx context.Context, margin decimal.Decimal) (decimal.Decimal, error)
	DefaultCategoryIDInTx(ctx context.Context, tx *gorm.DB) (int64, error)
}

type service struct {
	repo           *Repository
	categories     CategoryLookup
	fallbackMargin decimal.Decimal
	logg           *logger.Logger
}

// NewService wires the preferences service. fallbackMargin is returned while
// globalDefaultMargin is unset.
func NewService(repo *Repository, categories CategoryLookup, fallbackMargin string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("preferences repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	margin, err := parseMargin(fallbackMargin)
	if err != nil {
		return nil, fmt.Errorf("fallback margin: %w", err)
	}
	return &service{repo: repo, categories: categories, fallbackMargin: margin, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]Preference, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: list preferences")
	}
	stored := make(map[string]string, len(rows))
	for _, row := range rows {
		stored[row.Key] = row.Value
	}

	out := make([]Preference, 0, len(enums.PreferenceKeys()))
	for _, key := range enums.PreferenceKeys() {
		value, ok := stored[string(key)]
		if !ok {
			value = s.defaultValue(key)
		}
		out = append(out, Preference{Key: key, Value: value})
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, key enums.PreferenceKey) (*Preference, error) {
	if !key.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "preference not found")
	}
	value, err := s.value(ctx, s.repo, key)
	if err != nil {
		return nil, err
	}
	return &Preference{Key: key, Value: value}, nil
}

// Set validates value for key and stores it.
func (s *service) Set(ctx context.Context, key enums.PreferenceKey, value string) (*Preference, error) {
	value = strings.TrimSpace(value)
	switch key {
	case enums.PreferenceKeyGlobalDefaultMargin:
		margin, err := parseMargin(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid margin")
		}
		value = margin.String()
	case enums.PreferenceKeyDefaultProductCategory:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id must be a positive integer")
		}
		ok, err := s.categories.CategoryExists(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: check category")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "category does not exist").
				WithDetails(map[string]any{"categoryId": id})
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "preference not found")
	}

	if err := s.repo.Upsert(ctx, &models.Preference{Key: string(key), Value: value}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: store preference")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"key": string(key), "value": value})
	s.logg.Info(logCtx, "preference.updated")
	return &Preference{Key: key, Value: value}, nil
}

// DefaultMargin returns globalDefaultMargin as a decimal fraction (0.05 is five percent).
func (s *service) DefaultMargin(ctx context.Context) (decimal.Decimal, error) {
	value, err := s.value(ctx, s.repo, enums.PreferenceKeyGlobalDefaultMargin)
	if err != nil {
		return decimal.Zero, err
	}
	margin, err := parseMargin(value)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "value", value), "preference.margin_unparseable")
		return s.fallbackMargin, nil
	}
	return margin, nil
}

func (s *service) SetDefaultMargin(ctx context.Context, margin decimal.Decimal) (decimal.Decimal, error) {
	pref, err := s.Set(ctx, enums.PreferenceKeyGlobalDefaultMargin, margin.String())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.RequireFromString(pref.Value), nil
}

// DefaultCategoryIDInTx reads defaultProductCategory through the caller's transaction.
func (s *service) DefaultCategoryIDInTx(ctx context.Context, tx *gorm.DB) (int64, error) {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	value, err := s.value(ctx, repo, enums.PreferenceKeyDefaultProductCategory)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return fallbackCategoryID, nil
	}
	return id, nil
}

func (s *service) value(ctx context.Context, repo *Repository, key enums.PreferenceKey) (string, error) {
	pref, err := repo.Get(ctx, string(key))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultValue(key), nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: read preference")
	}
	return pref.Value, nil
}

func (s *service) defaultValue(key enums.PreferenceKey) string {
	switch key {
	case enums.PreferenceKeyGlobalDefaultMargin:
		return s.fallbackMargin.String()
	case enums.PreferenceKeyDefaultProductCategory:
		return strconv.FormatInt(fallbackCategoryID, 10)
	}
	return ""
}

func parseMargin(value string) (decimal.Decimal, error) {
	margin, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, err
	}
	if margin.IsNegative() {
		return decimal.Zero, fmt.Errorf("margin cannot be negative")
	}
	return margin, nil
}
