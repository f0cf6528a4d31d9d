package activations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modbuspro/license-server/pkg/db/models"
)

// Repository exposes activation persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an activation repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByLicenseAndFingerprint returns the existing binding for a machine, if any.
func (r *Repository) FindByLicenseAndFingerprint(ctx context.Context, licenseID uuid.UUID, fingerprint string) (*models.Activation, error) {
	var row models.Activation
	err := r.db.WithContext(ctx).
		Where("license_id = ? AND fingerprint = ?", licenseID, fingerprint).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindOwned returns the activation only when it belongs to the given license.
func (r *Repository) FindOwned(ctx context.Context, licenseID, activationID uuid.UUID) (*models.Activation, error) {
	var row models.Activation
	err := r.db.WithContext(ctx).
		Where("id = ? AND license_id = ?", activationID, licenseID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountForLicense returns the number of quota slots currently consumed.
func (r *Repository) CountForLicense(ctx context.Context, licenseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Activation{}).
		Where("license_id = ?", licenseID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new activation row.
func (r *Repository) Create(ctx context.Context, activation *models.Activation) (*models.Activation, error) {
	if err := r.db.WithContext(ctx).Create(activation).Error; err != nil {
		return nil, err
	}
	return activation, nil
}

// Delete removes the activation, freeing its quota slot. Deleting an already
// deleted row is a no-op.
func (r *Repository) Delete(ctx context.Context, activationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", activationID).
		Delete(&models.Activation{}).Error
}

// TouchValidated records a successful soft validation.
func (r *Repository) TouchValidated(ctx context.Context, activationID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Activation{}).
		Where("id = ?", activationID).
		Update("last_validated_at", at).Error
}
