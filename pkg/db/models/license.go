package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modbuspro/license-server/pkg/enums"
)

// License is the entitlement record created once per completed checkout.
// The key and the checkout session id are immutable after issuance.
type License struct {
	ID                      uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	LicenseKey              string              `gorm:"column:license_key;not null;unique"`
	Tier                    enums.LicenseTier   `gorm:"column:tier;type:license_tier;not null"`
	MaxActivations          int                 `gorm:"column:max_activations;not null"`
	Status                  enums.LicenseStatus `gorm:"column:status;type:license_status;not null;default:'active'"`
	CustomerName            string              `gorm:"column:customer_name;not null;default:''"`
	CustomerEmail           string              `gorm:"column:customer_email;not null;default:''"`
	StripeCheckoutSessionID string              `gorm:"column:stripe_checkout_session_id;not null;unique"`
	StripeCustomerID        string              `gorm:"column:stripe_customer_id;not null;default:''"`
	CreatedAt               time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *License) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = enums.LicenseStatusActive
	}
	return nil
}
