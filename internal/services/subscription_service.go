package services

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentGateway attempts to collect a renewal payment. A nil error
// means the charge succeeded.
type PaymentGateway interface {
	AttemptPayment(sub *models.Subscription) error
}

// SimulatedGateway stands in when no real billing backend is
// configured. FailureRate in [0,1) makes a fraction of charges fail.
type SimulatedGateway struct {
	FailureRate float64
}

func (g *SimulatedGateway) AttemptPayment(sub *models.Subscription) error {
	if rand.Float64() < g.FailureRate {
		return fmt.Errorf("simulated payment decline")
	}
	return nil
}

type SubscriptionService struct {
	db      *gorm.DB
	plans   *PlanService
	gateway PaymentGateway
}

func NewSubscriptionService(db *gorm.DB, plans *PlanService, gateway PaymentGateway) *SubscriptionService {
	return &SubscriptionService{db: db, plans: plans, gateway: gateway}
}

// Create snapshots the plan's price and limits into a new subscription.
func (s *SubscriptionService) Create(userID uuid.UUID, tier, billingCycle string) (*models.Subscription, error) {
	if billingCycle != models.BillingCycleMonthly && billingCycle != models.BillingCycleYearly {
		return nil, apperr.Validation("Billing cycle must be monthly or yearly")
	}

	plan, err := s.plans.GetByTier(tier)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	end := addBillingPeriod(now, billingCycle)

	sub := models.Subscription{
		UserID:       userID,
		PlanID:       &plan.ID,
		Tier:         plan.Tier,
		MaxMessages:  plan.MaxMessages,
		Price:        plan.PriceFor(billingCycle),
		BillingCycle: billingCycle,
		AutoRenew:    true,
		IsActive:     true,
		StartDate:    now,
		EndDate:      end,
		RenewalDate:  &end,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return &sub, nil
}

func (s *SubscriptionService) ListByUser(userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SubscriptionService) ListActiveByUser(userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.
		Where("user_id = ? AND is_active = ? AND end_date >= ?", userID, true, time.Now()).
		Order("CASE WHEN max_messages = -1 THEN 1 ELSE 0 END DESC, max_messages DESC, used_messages ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}
	return subs, nil
}

// Get enforces ownership: a foreign subscription id reads as a bad
// request, matching the mutation endpoints.
func (s *SubscriptionService) Get(subscriptionID, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", subscriptionID).Error; err != nil {
		return nil, apperr.NotFound("Subscription")
	}
	if sub.UserID != userID {
		return nil, apperr.BadRequest("Unauthorized to access this subscription")
	}
	return &sub, nil
}

func (s *SubscriptionService) ToggleAutoRenew(subscriptionID, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Get(subscriptionID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(sub).Update("auto_renew", !sub.AutoRenew).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle auto-renew: %w", err)
	}
	sub.AutoRenew = !sub.AutoRenew
	return sub, nil
}

func (s *SubscriptionService) Cancel(subscriptionID, userID uuid.UUID) error {
	sub, err := s.Get(subscriptionID, userID)
	if err != nil {
		return err
	}

	return s.db.Model(sub).Updates(map[string]interface{}{
		"auto_renew": false,
		"is_active":  false,
	}).Error
}

func (s *SubscriptionService) Delete(subscriptionID, userID uuid.UUID) error {
	sub, err := s.Get(subscriptionID, userID)
	if err != nil {
		return err
	}
	return s.db.Delete(sub).Error
}

// Renew charges one subscription via the gateway. Success resets the
// used counter and advances the period from the previous end date;
// failure deactivates the subscription. There is no third outcome.
func (s *SubscriptionService) Renew(subscriptionID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", subscriptionID).Error; err != nil {
		return nil, apperr.NotFound("Subscription")
	}

	if err := s.gateway.AttemptPayment(&sub); err != nil {
		if dbErr := s.db.Model(&sub).Updates(map[string]interface{}{
			"is_active":  false,
			"auto_renew": false,
		}).Error; dbErr != nil {
			return nil, fmt.Errorf("failed to deactivate subscription: %w", dbErr)
		}
		return nil, apperr.PaymentFailed("Payment failed. Subscription marked inactive.")
	}

	newEnd := addBillingPeriod(sub.EndDate, sub.BillingCycle)
	if err := s.db.Model(&sub).Updates(map[string]interface{}{
		"used_messages": 0,
		"end_date":      newEnd,
		"renewal_date":  newEnd,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to renew subscription: %w", err)
	}

	sub.UsedMessages = 0
	sub.EndDate = newEnd
	sub.RenewalDate = &newEnd
	return &sub, nil
}

// RenewalReport aggregates one batch run of ProcessAutoRenewals.
type RenewalReport struct {
	Renewed int `json:"renewed"`
	Failed  int `json:"failed"`
}

// ProcessAutoRenewals renews every due subscription. Per-item failures
// are counted, never fatal to the batch.
func (s *SubscriptionService) ProcessAutoRenewals() (*RenewalReport, error) {
	var due []models.Subscription
	err := s.db.
		Where("is_active = ? AND auto_renew = ? AND renewal_date <= ?", true, true, time.Now()).
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	report := &RenewalReport{}
	for i := range due {
		if _, err := s.Renew(due[i].ID); err != nil {
			report.Failed++
			slog.Error("subscription renewal failed", "subscription_id", due[i].ID.String(), "error", err)
			continue
		}
		report.Renewed++
	}
	return report, nil
}

func addBillingPeriod(from time.Time, billingCycle string) time.Time {
	if billingCycle == models.BillingCycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
