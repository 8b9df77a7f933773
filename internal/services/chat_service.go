package services

import (
	"encoding/json"
	"fmt"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatService orchestrates a message exchange: quota check, user message
// persistence, the generation cycle, assistant message persistence,
// conversation bookkeeping and finally the quota debit.
type ChatService struct {
	db         *gorm.DB
	generation *GenerationService
	quota      *QuotaService
}

func NewChatService(db *gorm.DB, generation *GenerationService, quota *QuotaService) *ChatService {
	return &ChatService{db: db, generation: generation, quota: quota}
}

// SendMessageResult carries both persisted messages and the
// post-deduction quota snapshot.
type SendMessageResult struct {
	UserMessage      *models.ChatMessage `json:"user_message"`
	AssistantMessage *models.ChatMessage `json:"assistant_message"`
	QuotaRemaining   *QuotaInfo          `json:"quota_remaining"`
}

// SendMessage runs the full exchange. The steps are strictly ordered:
// deduction happens only after the assistant message is persisted, so a
// failed generation costs the caller nothing.
func (s *ChatService) SendMessage(conversationID uuid.UUID, content, language, inputType string, userID, sessionID *uuid.UUID) (*SendMessageResult, error) {
	if _, err := s.quota.CheckQuota(userID, sessionID); err != nil {
		return nil, err
	}

	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, apperr.NotFound("Conversation")
	}
	if !conv.CanAccess(userID, sessionID) {
		return nil, apperr.Forbidden("Access denied to this conversation")
	}

	userMessage := models.ChatMessage{
		ConversationID: conv.ID,
		UserID:         userID,
		SessionID:      sessionID,
		Role:           models.RoleUser,
		Content:        content,
		Language:       language,
		InputType:      inputType,
	}
	if err := s.db.Create(&userMessage).Error; err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	result, err := s.generation.RunCycle(content, language)
	if err != nil {
		return nil, err
	}

	iterationsJSON, err := json.Marshal(result.Iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode iterations: %w", err)
	}

	tokens := result.Tokens
	assistantMessage := models.ChatMessage{
		ConversationID: conv.ID,
		UserID:         userID,
		SessionID:      sessionID,
		Role:           models.RoleAssistant,
		Content:        result.FinalPost,
		Tokens:         &tokens,
		Language:       language,
		InputType:      "text",
		Iterations:     datatypes.JSON(iterationsJSON),
	}
	if err := s.db.Create(&assistantMessage).Error; err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	if err := s.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		UpdateColumn("message_count", gorm.Expr("message_count + 1")).Error; err != nil {
		return nil, fmt.Errorf("failed to increment message count: %w", err)
	}

	// Title from the first message; conv still holds the pre-increment count.
	if conv.MessageCount == 0 {
		if err := s.db.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("title", DeriveTitle(content)).Error; err != nil {
			return nil, fmt.Errorf("failed to set conversation title: %w", err)
		}
	}

	if err := s.quota.DeductUsage(userID, sessionID); err != nil {
		return nil, fmt.Errorf("failed to deduct usage: %w", err)
	}

	quotaInfo, err := s.quota.CheckQuota(userID, sessionID)
	if err != nil {
		// The exchange succeeded; an exhausted ledger here only means
		// this was the last available message.
		if appErr := apperr.As(err); appErr != nil && appErr.Code == "QUOTA_EXCEEDED" {
			quotaInfo = &QuotaInfo{Type: "", Remaining: 0, Total: 0, Message: appErr.Message}
		} else {
			return nil, err
		}
	}

	return &SendMessageResult{
		UserMessage:      &userMessage,
		AssistantMessage: &assistantMessage,
		QuotaRemaining:   quotaInfo,
	}, nil
}

// Messages returns a conversation's log in chronological order.
func (s *ChatService) Messages(conversationID uuid.UUID, userID, sessionID *uuid.UUID) ([]models.ChatMessage, error) {
	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, apperr.NotFound("Conversation")
	}
	if !conv.CanAccess(userID, sessionID) {
		return nil, apperr.Forbidden("Access denied to this conversation")
	}

	var messages []models.ChatMessage
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}
