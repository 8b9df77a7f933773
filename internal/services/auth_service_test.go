package services

import (
	"testing"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthFixture(t *testing.T, db *gorm.DB) (*AuthService, *OTPService) {
	t.Helper()
	cfg := testConfig()
	otp := NewOTPService(db, cfg)
	// SMTP is unconfigured in tests; codes are logged instead of sent.
	return NewAuthService(db, cfg, otp, NewSMTPMailer(cfg)), otp
}

func registerVerifiedUser(t *testing.T, auth *AuthService, otp *OTPService, email, password string) *dto.AuthResponse {
	t.Helper()
	resp, err := auth.Register(&dto.RegisterRequest{
		Email: email, Password: password, Name: "Test User", DeviceID: "device-1",
	})
	require.NoError(t, err)
	require.True(t, resp.RequiresEmailVerification)

	code, err := otp.Issue(resp.User.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)

	verified, err := auth.VerifyEmail(&dto.VerifyEmailRequest{Email: email, Code: code})
	require.NoError(t, err)
	require.NotEmpty(t, verified.AccessToken)
	require.NotEmpty(t, verified.RefreshToken)
	return verified
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newAuthFixture(t, db)

	_, err := auth.Register(&dto.RegisterRequest{Email: "not-an-email", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = auth.Register(&dto.RegisterRequest{Email: "user@example.com", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newAuthFixture(t, db)

	_, err := auth.Register(&dto.RegisterRequest{Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Register(&dto.RegisterRequest{Email: "dup@example.com", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

func TestLoginBlocksUnverifiedEmail(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newAuthFixture(t, db)

	_, err := auth.Register(&dto.RegisterRequest{Email: "new@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Login(&dto.LoginRequest{Email: "new@example.com", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	db := newTestDB(t)
	auth, otp := newAuthFixture(t, db)
	registerVerifiedUser(t, auth, otp, "user@example.com", "password123")

	_, err := auth.Login(&dto.LoginRequest{Email: "user@example.com", Password: "wrong-password", DeviceID: "device-1"})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

func TestLoginUnknownDeviceTriggersChallenge(t *testing.T) {
	db := newTestDB(t)
	auth, otp := newAuthFixture(t, db)
	verified := registerVerifiedUser(t, auth, otp, "user@example.com", "password123")

	// Known device signs straight in.
	resp, err := auth.Login(&dto.LoginRequest{Email: "user@example.com", Password: "password123", DeviceID: "device-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	// Unknown device gets a challenge instead of tokens.
	resp, err = auth.Login(&dto.LoginRequest{Email: "user@example.com", Password: "password123", DeviceID: "device-2"})
	require.NoError(t, err)
	assert.True(t, resp.RequiresDeviceVerification)
	assert.Empty(t, resp.AccessToken)

	code, err := otp.Issue(verified.User.ID, models.OTPPurposeDeviceVerification)
	require.NoError(t, err)

	resp, err = auth.VerifyDevice(&dto.VerifyDeviceRequest{Email: "user@example.com", Code: code, DeviceID: "device-2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	// The device is now trusted.
	resp, err = auth.Login(&dto.LoginRequest{Email: "user@example.com", Password: "password123", DeviceID: "device-2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.False(t, resp.RequiresDeviceVerification)
}

func TestRefreshTokenRotation(t *testing.T) {
	db := newTestDB(t)
	auth, otp := newAuthFixture(t, db)
	verified := registerVerifiedUser(t, auth, otp, "user@example.com", "password123")

	refreshed, err := auth.Refresh(&dto.RefreshRequest{RefreshToken: verified.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, verified.RefreshToken, refreshed.RefreshToken)

	// The presented token is single-use.
	_, err = auth.Refresh(&dto.RefreshRequest{RefreshToken: verified.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	db := newTestDB(t)
	auth, otp := newAuthFixture(t, db)
	verified := registerVerifiedUser(t, auth, otp, "user@example.com", "password123")

	require.NoError(t, auth.Logout(&dto.LogoutRequest{RefreshToken: verified.RefreshToken}))

	_, err := auth.Refresh(&dto.RefreshRequest{RefreshToken: verified.RefreshToken})
	require.Error(t, err)
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	db := newTestDB(t)
	auth, otp := newAuthFixture(t, db)
	verified := registerVerifiedUser(t, auth, otp, "user@example.com", "password123")

	require.NoError(t, auth.ForgotPassword(&dto.ForgotPasswordRequest{Email: "user@example.com"}))

	code, err := otp.Issue(verified.User.ID, models.OTPPurposePasswordReset)
	require.NoError(t, err)

	err = auth.ResetPassword(&dto.ResetPasswordRequest{
		Email: "user@example.com", Code: code, NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)

	// Old refresh tokens are revoked; the new password works.
	_, err = auth.Refresh(&dto.RefreshRequest{RefreshToken: verified.RefreshToken})
	require.Error(t, err)

	resp, err := auth.Login(&dto.LoginRequest{Email: "user@example.com", Password: "brand-new-pass", DeviceID: "device-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestForgotPasswordSilentOnUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	auth, _ := newAuthFixture(t, db)

	require.NoError(t, auth.ForgotPassword(&dto.ForgotPasswordRequest{Email: "ghost@example.com"}))
}
