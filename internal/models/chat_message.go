package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Iteration is one generate/critique round of the generation cycle,
// stored on assistant messages for client-side review.
type Iteration struct {
	Generation string `json:"generation"`
	Reflection string `json:"reflection"`
}

// ChatMessage rows are append-only; nothing mutates them after creation.
type ChatMessage struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"conversation_id"`
	UserID         *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID      *uuid.UUID     `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Role           string         `gorm:"size:20;not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Tokens         *int           `json:"tokens,omitempty"`
	Language       string         `gorm:"size:20;default:'en'" json:"language"`
	InputType      string         `gorm:"size:20;default:'text'" json:"input_type"`
	Iterations     datatypes.JSON `gorm:"type:jsonb" json:"iterations,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
