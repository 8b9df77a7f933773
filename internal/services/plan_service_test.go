package services

import (
	"testing"

	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlanService(db)

	require.NoError(t, svc.SeedDefaults())
	require.NoError(t, svc.SeedDefaults())

	plans, err := svc.ListActive()
	require.NoError(t, err)
	require.Len(t, plans, 3)

	business, err := svc.GetByTier("Business")
	require.NoError(t, err)
	assert.Equal(t, models.UnlimitedMessages, business.MaxMessages)
	assert.True(t, business.IsUnlimited())
}

func TestPlanPriceFor(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlanService(db)
	require.NoError(t, svc.SeedDefaults())

	starter, err := svc.GetByTier("Starter")
	require.NoError(t, err)
	assert.Equal(t, 20.00, starter.PriceFor(models.BillingCycleMonthly))
	assert.Equal(t, 192.00, starter.PriceFor(models.BillingCycleYearly))
}

func TestDeactivateHidesPlanFromCatalog(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlanService(db)
	require.NoError(t, svc.SeedDefaults())

	starter, err := svc.GetByTier("Starter")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(starter.ID))

	plans, err := svc.ListActive()
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	// The plan row survives for existing subscription snapshots.
	_, err = svc.GetByTier("Starter")
	require.NoError(t, err)
}

func TestCreatePlanValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewPlanService(db)

	_, err := svc.Create(&PlanInput{Name: "No Tier"})
	require.Error(t, err)

	_, err = svc.Create(&PlanInput{Tier: "Custom", Name: "Custom Plan", MaxMessages: 10, MonthlyPrice: 5})
	require.NoError(t, err)

	_, err = svc.Create(&PlanInput{Tier: "Custom", Name: "Duplicate", MaxMessages: 10})
	require.Error(t, err)
}
