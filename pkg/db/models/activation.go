package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activation binds a license to one machine fingerprint. The
// (license_id, fingerprint) pair is unique, so re-activating the same machine
// resolves to the existing row instead of consuming another quota slot.
type Activation struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	LicenseID       uuid.UUID  `gorm:"column:license_id;type:uuid;not null;index;uniqueIndex:idx_activations_license_fingerprint"`
	Fingerprint     string     `gorm:"column:fingerprint;not null;uniqueIndex:idx_activations_license_fingerprint"`
	Label           string     `gorm:"column:label;not null;default:''"`
	Hostname        string     `gorm:"column:hostname;not null;default:''"`
	Platform        string     `gorm:"column:platform;not null;default:''"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	LastValidatedAt *time.Time `gorm:"column:last_validated_at"`
}

func (a *Activation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
