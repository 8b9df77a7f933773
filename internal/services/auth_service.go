package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	otp    *OTPService
	mailer Mailer
}

func NewAuthService(db *gorm.DB, cfg *config.Config, otp *OTPService, mailer Mailer) *AuthService {
	return &AuthService{db: db, cfg: cfg, otp: otp, mailer: mailer}
}

// Register creates the user and issues an email-verification code. In
// production an undeliverable verification mail rolls the user back so
// no unverifiable account lingers.
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if !emailPattern.MatchString(req.Email) {
		return nil, apperr.Validation("Invalid email format")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation("Password must be at least 8 characters")
	}

	var existing models.User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, apperr.Conflict("User with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:          req.Email,
		Password:       string(hash),
		Name:           req.Name,
		FreeQuotaLimit: s.cfg.FreeQuotaLimit,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if req.DeviceID != "" {
		s.registerDevice(user.ID, req.DeviceID, true)
	}

	code, err := s.otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	if err != nil {
		return nil, err
	}

	if s.cfg.EmailConfigured() {
		if err := s.mailer.SendVerificationCode(user.Email, user.Name, code); err != nil {
			slog.Error("failed to send verification email", "error", err, "user_id", user.ID.String())
			if s.cfg.IsProduction() {
				s.db.Delete(&user)
				return nil, apperr.BadRequest("Failed to send verification email. Please try again or contact support.")
			}
			slog.Warn("email delivery failed in development, code logged", "code", code, "email", user.Email)
		}
	} else {
		if s.cfg.IsProduction() {
			s.db.Delete(&user)
			return nil, apperr.BadRequest("Email service not configured. Registration cannot be completed.")
		}
		slog.Info("email not configured, verification code logged", "code", code, "email", user.Email)
	}

	return &dto.AuthResponse{
		User:                      userResponse(&user),
		RequiresEmailVerification: true,
		Message:                   "Registration successful! Please check your email for the verification code.",
	}, nil
}

func (s *AuthService) VerifyEmail(req *dto.VerifyEmailRequest) (*dto.AuthResponse, error) {
	user, err := s.findByEmail(req.Email)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(user.ID, models.OTPPurposeEmailVerification, req.Code); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"is_email_verified": true,
		"email_verified_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}
	user.IsEmailVerified = true
	user.EmailVerifiedAt = &now

	return s.tokenResponse(user)
}

func (s *AuthService) ResendVerification(req *dto.ResendVerificationRequest) error {
	user, err := s.findByEmail(req.Email)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return apperr.BadRequest("Email is already verified")
	}

	code, err := s.otp.Issue(user.ID, models.OTPPurposeEmailVerification)
	if err != nil {
		return err
	}

	if s.cfg.EmailConfigured() {
		return s.mailer.SendVerificationCode(user.Email, user.Name, code)
	}
	slog.Info("email not configured, verification code logged", "code", code, "email", user.Email)
	return nil
}

// Login checks credentials, then the device. A sign-in from an unknown
// device returns a challenge instead of tokens.
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !user.IsEmailVerified {
		return nil, apperr.Unauthorized("Please verify your email before logging in")
	}

	if req.DeviceID != "" && !s.deviceTrusted(user.ID, req.DeviceID) {
		code, err := s.otp.Issue(user.ID, models.OTPPurposeDeviceVerification)
		if err != nil {
			return nil, err
		}
		if s.cfg.EmailConfigured() {
			if err := s.mailer.SendDeviceVerificationCode(user.Email, user.Name, code); err != nil {
				return nil, fmt.Errorf("failed to send device verification email: %w", err)
			}
		} else {
			slog.Info("email not configured, device code logged", "code", code, "email", user.Email)
		}
		return &dto.AuthResponse{
			User:                       userResponse(&user),
			RequiresDeviceVerification: true,
			Message:                    "New device detected. Please check your email for the verification code.",
		}, nil
	}

	return s.tokenResponse(&user)
}

func (s *AuthService) VerifyDevice(req *dto.VerifyDeviceRequest) (*dto.AuthResponse, error) {
	user, err := s.findByEmail(req.Email)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(user.ID, models.OTPPurposeDeviceVerification, req.Code); err != nil {
		return nil, err
	}

	s.registerDevice(user.ID, req.DeviceID, true)
	return s.tokenResponse(user)
}

func (s *AuthService) Refresh(req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.Model(&stored).Update("revoked", true)
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotate: the presented token is single-use.
	s.db.Model(&stored).Update("revoked", true)

	var user models.User
	if err := s.db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, apperr.NotFound("User")
	}

	return s.tokenResponse(&user)
}

func (s *AuthService) Logout(req *dto.LogoutRequest) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

func (s *AuthService) ForgotPassword(req *dto.ForgotPasswordRequest) error {
	user, err := s.findByEmail(req.Email)
	if err != nil {
		// Do not reveal whether the address exists.
		return nil
	}

	code, err := s.otp.Issue(user.ID, models.OTPPurposePasswordReset)
	if err != nil {
		return err
	}

	if s.cfg.EmailConfigured() {
		return s.mailer.SendPasswordResetCode(user.Email, user.Name, code)
	}
	slog.Info("email not configured, reset code logged", "code", code, "email", user.Email)
	return nil
}

func (s *AuthService) ResetPassword(req *dto.ResetPasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return apperr.Validation("Password must be at least 8 characters")
	}

	user, err := s.findByEmail(req.Email)
	if err != nil {
		return err
	}

	if err := s.otp.Verify(user.ID, models.OTPPurposePasswordReset, req.Code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", string(hash)).Error; err != nil {
			return err
		}
		// Invalidate every open session.
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", user.ID).
			Update("revoked", true).Error
	})
}

func (s *AuthService) GetUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, apperr.NotFound("User")
	}
	return &user, nil
}

// --- internal helpers ---

func (s *AuthService) findByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, apperr.NotFound("User")
	}
	return &user, nil
}

func (s *AuthService) deviceTrusted(userID uuid.UUID, deviceID string) bool {
	var device models.TrustedDevice
	err := s.db.
		Where("user_id = ? AND fingerprint_hash = ? AND verified_at IS NOT NULL", userID, hashToken(deviceID)).
		First(&device).Error
	if err != nil {
		return false
	}
	s.db.Model(&device).Update("last_seen_at", time.Now().UTC())
	return true
}

func (s *AuthService) registerDevice(userID uuid.UUID, deviceID string, verified bool) {
	fingerprint := hashToken(deviceID)
	var device models.TrustedDevice
	err := s.db.Where("user_id = ? AND fingerprint_hash = ?", userID, fingerprint).First(&device).Error
	now := time.Now().UTC()
	if err == nil {
		updates := map[string]interface{}{"last_seen_at": now}
		if verified && device.VerifiedAt == nil {
			updates["verified_at"] = now
		}
		s.db.Model(&device).Updates(updates)
		return
	}

	device = models.TrustedDevice{
		UserID:          userID,
		FingerprintHash: fingerprint,
		LastSeenAt:      now,
	}
	if verified {
		device.VerifiedAt = &now
	}
	if err := s.db.Create(&device).Error; err != nil {
		slog.Warn("failed to register device", "error", err, "user_id", userID.String())
	}
}

func (s *AuthService) tokenResponse(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		IsEmailVerified: user.IsEmailVerified,
	}
}
