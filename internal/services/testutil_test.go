package services

import (
	"testing"
	"time"

	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open db")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db), "migrate")
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:            "test-secret",
		JWTAccessExpiry:      time.Hour,
		JWTRefreshExpiry:     24 * time.Hour,
		FreeQuotaLimit:       3,
		SessionConversations: 3,
		SessionExpiryDays:    30,
		OTPExpiry:            10 * time.Minute,
		FrontendURL:          "http://localhost:3000",
		Env:                  "test",
	}
}
