package services

import (
	"testing"
	"time"

	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPIssueAndVerify(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	code, err := otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	require.NoError(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, code))

	// Codes are single-use.
	require.Error(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, code))
}

func TestOTPReissueInvalidatesPrevious(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	first, err := otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)
	second, err := otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)

	require.Error(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, first))
	require.NoError(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, second))
}

func TestOTPPurposesAreIsolated(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	code, err := otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)

	require.Error(t, otp.Verify(user.ID, models.OTPPurposePasswordReset, code))
	require.NoError(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, code))
}

func TestOTPExpiry(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	code, err := otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.OTPCode{}).
		Where("user_id = ?", user.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	require.Error(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, code))
}

func TestOTPWrongCode(t *testing.T) {
	db := newTestDB(t)
	otp := NewOTPService(db, testConfig())
	user := createTestUser(t, db, 0, 3)

	code, err := otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	require.Error(t, otp.Verify(user.ID, models.OTPPurposeEmailVerification, wrong))
}
