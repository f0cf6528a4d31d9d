package licenses

import (
	"context"

	"gorm.io/gorm"

	"github.com/modbuspro/license-server/pkg/db/models"
)

// Repository exposes license persistence operations. Callers are expected to
// normalize keys before lookups.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a license repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByKey returns the license stored under the canonical key.
func (r *Repository) FindByKey(ctx context.Context, key string) (*models.License, error) {
	var row models.License
	if err := r.db.WithContext(ctx).Where("license_key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindBySessionID returns the license issued for the given checkout session.
func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.License, error) {
	var row models.License
	if err := r.db.WithContext(ctx).Where("stripe_checkout_session_id = ?", sessionID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// KeyExists reports whether a license already holds the given key.
func (r *Repository) KeyExists(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.License{}).Where("license_key = ?", key).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new license row. Unique violations surface as the raw
// database error so callers can translate them to conflict semantics.
func (r *Repository) Create(ctx context.Context, license *models.License) (*models.License, error) {
	if err := r.db.WithContext(ctx).Create(license).Error; err != nil {
		return nil, err
	}
	return license, nil
}
