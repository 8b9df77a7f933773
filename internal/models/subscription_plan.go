package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionPlan is the admin-managed catalog entry. Subscriptions
// copy its price and limits at creation; they are never live-joined.
type SubscriptionPlan struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Tier         string         `gorm:"size:50;not null;uniqueIndex" json:"tier"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	MaxMessages  int            `gorm:"not null" json:"max_messages"`
	MonthlyPrice float64        `gorm:"not null" json:"monthly_price"`
	YearlyPrice  float64        `gorm:"not null" json:"yearly_price"`
	Features     datatypes.JSON `gorm:"type:jsonb" json:"features"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *SubscriptionPlan) PriceFor(billingCycle string) float64 {
	if billingCycle == BillingCycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

func (p *SubscriptionPlan) IsUnlimited() bool {
	return p.MaxMessages == UnlimitedMessages
}
