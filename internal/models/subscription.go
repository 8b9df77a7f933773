package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// UnlimitedMessages marks a subscription whose allowance never exhausts.
const UnlimitedMessages = -1

// Subscription snapshots the plan's price and limits at purchase time;
// later plan edits do not affect existing subscriptions.
type Subscription struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID       *uuid.UUID `gorm:"type:uuid" json:"plan_id,omitempty"`
	Tier         string     `gorm:"size:50;not null" json:"tier"`
	MaxMessages  int        `gorm:"not null" json:"max_messages"`
	UsedMessages int        `gorm:"not null;default:0" json:"used_messages"`
	Price        float64    `gorm:"not null" json:"price"`
	BillingCycle string     `gorm:"size:20;not null" json:"billing_cycle"`
	AutoRenew    bool       `gorm:"not null;default:true" json:"auto_renew"`
	IsActive     bool       `gorm:"not null;default:true;index" json:"is_active"`
	StartDate    time.Time  `gorm:"not null" json:"start_date"`
	EndDate      time.Time  `gorm:"not null;index" json:"end_date"`
	RenewalDate  *time.Time `gorm:"index" json:"renewal_date,omitempty"`
	StripeSubID  *string    `gorm:"size:255;index" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	User         User       `gorm:"foreignKey:UserID" json:"-"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Subscription) HasQuota() bool {
	return s.MaxMessages == UnlimitedMessages || s.UsedMessages < s.MaxMessages
}

func (s *Subscription) IsExpired() bool {
	return time.Now().After(s.EndDate)
}

// Remaining returns -1 for unlimited plans.
func (s *Subscription) Remaining() int {
	if s.MaxMessages == UnlimitedMessages {
		return UnlimitedMessages
	}
	if remaining := s.MaxMessages - s.UsedMessages; remaining > 0 {
		return remaining
	}
	return 0
}
