package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type RenameConversationRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Content   string `json:"content"`
	Language  string `json:"language"`
	InputType string `json:"input_type"`
}

type ConversationResponse struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	IsAnonymous  bool      `json:"is_anonymous"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SessionResponse struct {
	ID                 uuid.UUID `json:"id"`
	ConversationsUsed  int       `json:"conversations_used"`
	ConversationsLimit int       `json:"conversations_limit"`
	ExpiresAt          time.Time `json:"expires_at"`
}

type ClaimSessionResponse struct {
	ConversationsClaimed int `json:"conversations_claimed"`
}

type CheckoutRequest struct {
	Tier         string `json:"tier"`
	BillingCycle string `json:"billing_cycle"`
}
