package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OTPPurposeEmailVerification  = "email_verification"
	OTPPurposeDeviceVerification = "device_verification"
	OTPPurposePasswordReset      = "password_reset"
)

// OTPCode is a short-lived one-time code delivered by email. Only the
// sha256 hash is stored; a code is single-use via ConsumedAt.
type OTPCode struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CodeHash   string     `gorm:"size:64;not null;index" json:"-"`
	Purpose    string     `gorm:"size:30;not null;index" json:"purpose"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
}

func (o *OTPCode) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *OTPCode) IsUsable() bool {
	return o.ConsumedAt == nil && time.Now().Before(o.ExpiresAt)
}
