package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string     `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	Name             string     `gorm:"size:100" json:"name"`
	IsEmailVerified  bool       `gorm:"not null;default:false" json:"is_email_verified"`
	EmailVerifiedAt  *time.Time `json:"email_verified_at,omitempty"`
	FreeQuotaUsed    int        `gorm:"not null;default:0" json:"free_quota_used"`
	FreeQuotaLimit   int        `gorm:"not null;default:3" json:"free_quota_limit"`
	LastQuotaReset   time.Time  `gorm:"not null" json:"last_quota_reset"`
	StripeCustomerID *string    `gorm:"size:255;index" json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.LastQuotaReset.IsZero() {
		u.LastQuotaReset = time.Now().UTC()
	}
	return nil
}

func (u *User) CanUseFreeQuota() bool {
	return u.FreeQuotaUsed < u.FreeQuotaLimit
}

// NeedsQuotaReset reports whether the last reset happened in a previous
// calendar month. The monthly allowance rolls over on month boundaries,
// not on a sliding 30-day window.
func (u *User) NeedsQuotaReset() bool {
	now := time.Now().UTC()
	last := u.LastQuotaReset.UTC()
	return now.Month() != last.Month() || now.Year() != last.Year()
}

func (u *User) FreeRemaining() int {
	if remaining := u.FreeQuotaLimit - u.FreeQuotaUsed; remaining > 0 {
		return remaining
	}
	return 0
}
