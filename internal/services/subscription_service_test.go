package services

import (
	"errors"
	"testing"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// tierGateway fails charges for subscriptions on the listed tiers.
type tierGateway struct {
	failTiers map[string]bool
	charges   int
}

func (g *tierGateway) AttemptPayment(sub *models.Subscription) error {
	g.charges++
	if g.failTiers[sub.Tier] {
		return errors.New("card declined")
	}
	return nil
}

func newSubscriptionFixture(t *testing.T, db *gorm.DB, gateway PaymentGateway) *SubscriptionService {
	t.Helper()
	plans := NewPlanService(db)
	require.NoError(t, plans.SeedDefaults())
	return NewSubscriptionService(db, plans, gateway)
}

func TestCreateSnapshotsPlan(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{})
	user := createTestUser(t, db, 0, 3)

	sub, err := svc.Create(user.ID, "Starter", models.BillingCycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, "Starter", sub.Tier)
	assert.Equal(t, 50, sub.MaxMessages)
	assert.Equal(t, 20.00, sub.Price)
	assert.True(t, sub.IsActive)
	assert.True(t, sub.AutoRenew)
	require.NotNil(t, sub.RenewalDate)
	assert.WithinDuration(t, sub.StartDate.AddDate(0, 1, 0), sub.EndDate, time.Second)
}

func TestCreateYearlyUsesYearlyPrice(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{})
	user := createTestUser(t, db, 0, 3)

	sub, err := svc.Create(user.ID, "Professional", models.BillingCycleYearly)
	require.NoError(t, err)

	assert.Equal(t, 384.00, sub.Price)
	assert.WithinDuration(t, sub.StartDate.AddDate(1, 0, 0), sub.EndDate, time.Second)
}

func TestCreateRejectsUnknownBillingCycle(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{})
	user := createTestUser(t, db, 0, 3)

	_, err := svc.Create(user.ID, "Starter", "weekly")
	require.Error(t, err)
	require.NotNil(t, apperr.As(err))
}

func TestRenewSuccessResetsUsageAndAdvancesPeriod(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{})
	user := createTestUser(t, db, 3, 3)

	sub, err := svc.Create(user.ID, "Starter", models.BillingCycleMonthly)
	require.NoError(t, err)
	previousEnd := sub.EndDate
	require.NoError(t, db.Model(sub).UpdateColumn("used_messages", 42).Error)

	renewed, err := svc.Renew(sub.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, renewed.UsedMessages)
	assert.WithinDuration(t, previousEnd.AddDate(0, 1, 0), renewed.EndDate, time.Second)
	require.NotNil(t, renewed.RenewalDate)
	assert.WithinDuration(t, renewed.EndDate, *renewed.RenewalDate, time.Second)
	assert.True(t, renewed.IsActive)
}

func TestRenewFailureDeactivates(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{failTiers: map[string]bool{"Starter": true}})
	user := createTestUser(t, db, 0, 3)

	sub, err := svc.Create(user.ID, "Starter", models.BillingCycleMonthly)
	require.NoError(t, err)

	_, err = svc.Renew(sub.ID)
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "PAYMENT_FAILED", appErr.Code)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.False(t, reloaded.IsActive)
	assert.False(t, reloaded.AutoRenew)
}

func TestProcessAutoRenewalsCountsOutcomes(t *testing.T) {
	db := newTestDB(t)
	gateway := &tierGateway{failTiers: map[string]bool{"Professional": true}}
	svc := newSubscriptionFixture(t, db, gateway)
	user := createTestUser(t, db, 0, 3)

	due := time.Now().Add(-time.Hour)
	starter, err := svc.Create(user.ID, "Starter", models.BillingCycleMonthly)
	require.NoError(t, err)
	require.NoError(t, db.Model(starter).UpdateColumn("renewal_date", due).Error)

	pro, err := svc.Create(user.ID, "Professional", models.BillingCycleMonthly)
	require.NoError(t, err)
	require.NoError(t, db.Model(pro).UpdateColumn("renewal_date", due).Error)

	// Not due: renewal date in the future.
	_, err = svc.Create(user.ID, "Business", models.BillingCycleMonthly)
	require.NoError(t, err)

	report, err := svc.ProcessAutoRenewals()
	require.NoError(t, err)

	assert.Equal(t, 1, report.Renewed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, gateway.charges)
}

func TestCancelForeignSubscriptionRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{})
	owner := createTestUser(t, db, 0, 3)

	other := models.User{Email: "other@example.com", Password: "hashed", FreeQuotaLimit: 3}
	require.NoError(t, db.Create(&other).Error)

	sub, err := svc.Create(owner.ID, "Starter", models.BillingCycleMonthly)
	require.NoError(t, err)

	err = svc.Cancel(sub.ID, other.ID)
	require.Error(t, err)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "BAD_REQUEST", appErr.Code)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.True(t, reloaded.IsActive)
}

func TestToggleAutoRenew(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionFixture(t, db, &tierGateway{})
	user := createTestUser(t, db, 0, 3)

	sub, err := svc.Create(user.ID, "Starter", models.BillingCycleMonthly)
	require.NoError(t, err)

	toggled, err := svc.ToggleAutoRenew(sub.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, toggled.AutoRenew)

	toggled, err = svc.ToggleAutoRenew(sub.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, toggled.AutoRenew)
}
