package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnonymousSession grants unauthenticated visitors a small fixed number
// of conversations before sign-up.
type AnonymousSession struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationsUsed  int       `gorm:"not null;default:0" json:"conversations_used"`
	ConversationsLimit int       `gorm:"not null;default:3" json:"conversations_limit"`
	ExpiresAt          time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
}

func (s *AnonymousSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *AnonymousSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *AnonymousSession) CanCreateConversation() bool {
	return s.ConversationsUsed < s.ConversationsLimit && !s.IsExpired()
}

func (s *AnonymousSession) Remaining() int {
	if remaining := s.ConversationsLimit - s.ConversationsUsed; remaining > 0 {
		return remaining
	}
	return 0
}
