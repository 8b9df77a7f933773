package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is owned by a user XOR an anonymous session.
type Conversation struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID    *uuid.UUID `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Title        string     `gorm:"size:255;not null;default:'New Conversation'" json:"title"`
	IsAnonymous  bool       `gorm:"not null;default:false" json:"is_anonymous"`
	MessageCount int        `gorm:"not null;default:0" json:"message_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Title == "" {
		c.Title = "New Conversation"
	}
	return nil
}

func (c *Conversation) CanAccess(userID, sessionID *uuid.UUID) bool {
	if userID != nil && c.UserID != nil && *c.UserID == *userID {
		return true
	}
	if sessionID != nil && c.SessionID != nil && *c.SessionID == *sessionID {
		return true
	}
	return false
}
