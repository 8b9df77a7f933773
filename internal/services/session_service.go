package services

import (
	"fmt"
	"time"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService manages anonymous trial sessions and their one-time
// conversion into an authenticated user's history.
type SessionService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewSessionService(db *gorm.DB, cfg *config.Config) *SessionService {
	return &SessionService{db: db, cfg: cfg}
}

func (s *SessionService) CreateSession() (*models.AnonymousSession, error) {
	session := models.AnonymousSession{
		ConversationsLimit: s.cfg.SessionConversations,
		ExpiresAt:          time.Now().UTC().AddDate(0, 0, s.cfg.SessionExpiryDays),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

func (s *SessionService) GetSession(sessionID uuid.UUID) (*models.AnonymousSession, error) {
	var session models.AnonymousSession
	if err := s.db.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, apperr.NotFound("Session")
	}

	if session.IsExpired() {
		return nil, apperr.QuotaExceeded("Session has expired. Please create a new session.", nil)
	}

	return &session, nil
}

// ClaimSession reassigns every conversation and message owned by the
// session to the user in a single transaction, so a partial transfer is
// never observable. Returns the session's used-conversation count for
// user-facing reporting. The session row itself is left for the sweep.
func (s *SessionService) ClaimSession(sessionID, userID uuid.UUID) (int, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return 0, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Conversation{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]interface{}{
				"user_id":      userID,
				"session_id":   nil,
				"is_anonymous": false,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.ChatMessage{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]interface{}{
				"user_id":    userID,
				"session_id": nil,
			}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to claim session: %w", err)
	}

	return session.ConversationsUsed, nil
}

// CleanupExpiredSessions deletes sessions past their expiry. Orphaned
// conversations are left in place.
func (s *SessionService) CleanupExpiredSessions() (int64, error) {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.AnonymousSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
