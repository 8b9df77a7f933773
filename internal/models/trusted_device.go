package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrustedDevice records a device fingerprint a user has verified via
// OTP. Logins from unknown devices trigger a verification challenge.
type TrustedDevice struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_devices_user_fp,priority:1" json:"user_id"`
	FingerprintHash string     `gorm:"size:64;not null;index:idx_devices_user_fp,priority:2" json:"-"`
	UserAgent       string     `gorm:"size:500" json:"user_agent"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
	CreatedAt       time.Time  `json:"created_at"`
	User            User       `gorm:"foreignKey:UserID" json:"-"`
}

func (d *TrustedDevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.LastSeenAt.IsZero() {
		d.LastSeenAt = time.Now().UTC()
	}
	return nil
}

func (d *TrustedDevice) IsVerified() bool {
	return d.VerifiedAt != nil
}
