package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/database"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type declineGateway struct{}

func (declineGateway) AttemptPayment(sub *models.Subscription) error {
	return errors.New("card declined")
}

func newJobFixture(t *testing.T) (*Runner, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open db")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db), "migrate")

	cfg := &config.Config{SessionConversations: 3, SessionExpiryDays: 30}
	plans := services.NewPlanService(db)
	subs := services.NewSubscriptionService(db, plans, declineGateway{})
	sessions := services.NewSessionService(db, cfg)
	return NewRunner(db, subs, sessions), db
}

func createStaleUser(t *testing.T, db *gorm.DB, email string, used int, lastReset time.Time) *models.User {
	t.Helper()
	user := models.User{
		Email:          email,
		Password:       "hashed",
		FreeQuotaUsed:  used,
		FreeQuotaLimit: 3,
		LastQuotaReset: lastReset,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestResetMonthlyQuotasIsIdempotent(t *testing.T) {
	runner, db := newJobFixture(t)

	stale := time.Now().UTC().AddDate(0, -1, 0)
	createStaleUser(t, db, "stale1@example.com", 3, stale)
	createStaleUser(t, db, "stale2@example.com", 1, stale)
	fresh := createStaleUser(t, db, "fresh@example.com", 2, time.Now().UTC())

	n, err := runner.ResetMonthlyQuotas()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var users []models.User
	require.NoError(t, db.Where("email LIKE ?", "stale%").Find(&users).Error)
	for _, u := range users {
		assert.Equal(t, 0, u.FreeQuotaUsed)
		assert.True(t, u.CanUseFreeQuota())
	}

	var untouched models.User
	require.NoError(t, db.First(&untouched, "id = ?", fresh.ID).Error)
	assert.Equal(t, 2, untouched.FreeQuotaUsed)

	// A second run in the same month matches nobody.
	n, err = runner.ResetMonthlyQuotas()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunnerSweepsExpiredSessions(t *testing.T) {
	runner, db := newJobFixture(t)

	expired := models.AnonymousSession{
		ConversationsLimit: 3,
		ExpiresAt:          time.Now().AddDate(0, 0, -1),
	}
	require.NoError(t, db.Create(&expired).Error)
	live := models.AnonymousSession{
		ConversationsLimit: 3,
		ExpiresAt:          time.Now().AddDate(0, 0, 30),
	}
	require.NoError(t, db.Create(&live).Error)

	runner.runSessionSweep()

	var count int64
	require.NoError(t, db.Model(&models.AnonymousSession{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunnerRenewalFailureDeactivates(t *testing.T) {
	runner, db := newJobFixture(t)

	user := createStaleUser(t, db, "payer@example.com", 0, time.Now().UTC())
	now := time.Now().UTC()
	due := now.Add(-time.Hour)
	sub := models.Subscription{
		UserID:       user.ID,
		Tier:         "Starter",
		MaxMessages:  50,
		UsedMessages: 10,
		Price:        20,
		BillingCycle: models.BillingCycleMonthly,
		AutoRenew:    true,
		IsActive:     true,
		StartDate:    now.AddDate(0, -1, 0),
		EndDate:      now,
		RenewalDate:  &due,
	}
	require.NoError(t, db.Create(&sub).Error)

	runner.runRenewals()

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.False(t, reloaded.IsActive)
	assert.False(t, reloaded.AutoRenew)
}

func TestRunnerStartStop(t *testing.T) {
	runner, _ := newJobFixture(t)
	runner.Start()
	runner.Stop()
}
