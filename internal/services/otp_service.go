package services

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPService issues and verifies short-lived one-time codes. Issuing a
// new code invalidates earlier unconsumed codes for the same purpose.
type OTPService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewOTPService(db *gorm.DB, cfg *config.Config) *OTPService {
	return &OTPService{db: db, cfg: cfg}
}

// Issue creates a 6-digit code for the user and purpose, returning the
// plaintext code for delivery. Only the hash is stored.
func (s *OTPService) Issue(userID uuid.UUID, purpose string) (string, error) {
	code, err := generateNumericCode(6)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.Model(&models.OTPCode{}).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Update("consumed_at", now).Error; err != nil {
		return "", fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	record := models.OTPCode{
		UserID:    userID,
		CodeHash:  hashToken(code),
		Purpose:   purpose,
		ExpiresAt: now.Add(s.cfg.OTPExpiry),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	return code, nil
}

// Verify consumes the code if it matches, is unexpired and unused.
func (s *OTPService) Verify(userID uuid.UUID, purpose, code string) error {
	var record models.OTPCode
	err := s.db.
		Where("user_id = ? AND purpose = ? AND code_hash = ?", userID, purpose, hashToken(code)).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return apperr.BadRequest("Invalid verification code")
	}

	if !record.IsUsable() {
		return apperr.BadRequest("Verification code has expired")
	}

	now := time.Now().UTC()
	return s.db.Model(&record).Update("consumed_at", now).Error
}

func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
