package services

import (
	"fmt"
	"strings"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const conversationTitleMaxLen = 50

type ConversationService struct {
	db *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// ConversationPage is a paginated listing for one owner.
type ConversationPage struct {
	Conversations []models.Conversation `json:"conversations"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	TotalPages    int                   `json:"total_pages"`
	HasMore       bool                  `json:"has_more"`
}

func (s *ConversationService) Create(userID, sessionID *uuid.UUID, title string) (*models.Conversation, error) {
	if userID == nil && sessionID == nil {
		return nil, apperr.Unauthorized("Authentication or session required")
	}

	conv := models.Conversation{
		Title:       title,
		IsAnonymous: userID == nil && sessionID != nil,
	}
	if userID != nil {
		conv.UserID = userID
	} else {
		conv.SessionID = sessionID
	}

	if err := s.db.Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, nil
}

// Get loads a conversation and enforces ownership.
func (s *ConversationService) Get(conversationID uuid.UUID, userID, sessionID *uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, apperr.NotFound("Conversation")
	}

	if !conv.CanAccess(userID, sessionID) {
		return nil, apperr.Forbidden("You do not have access to this conversation")
	}

	return &conv, nil
}

func (s *ConversationService) List(userID, sessionID *uuid.UUID, search string, page, limit int) (*ConversationPage, error) {
	if userID == nil && sessionID == nil {
		return nil, apperr.Unauthorized("Authentication or session required")
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := s.db.Model(&models.Conversation{})
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("session_id = ?", *sessionID)
	}

	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("title LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}

	var conversations []models.Conversation
	err := query.Order("updated_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ConversationPage{
		Conversations: conversations,
		Total:         total,
		Page:          page,
		TotalPages:    totalPages,
		HasMore:       page < totalPages,
	}, nil
}

func (s *ConversationService) Rename(conversationID uuid.UUID, title string, userID, sessionID *uuid.UUID) (*models.Conversation, error) {
	conv, err := s.Get(conversationID, userID, sessionID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("Title is required")
	}

	if err := s.db.Model(conv).Update("title", title).Error; err != nil {
		return nil, fmt.Errorf("failed to rename conversation: %w", err)
	}
	conv.Title = title
	return conv, nil
}

// Delete removes a conversation and its messages in one transaction.
func (s *ConversationService) Delete(conversationID uuid.UUID, userID, sessionID *uuid.UUID) error {
	conv, err := s.Get(conversationID, userID, sessionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(conv).Error
	})
}

// DeriveTitle truncates the first user message into a conversation
// title, with an ellipsis marker when truncated.
func DeriveTitle(message string) string {
	trimmed := strings.TrimSpace(message)
	runes := []rune(trimmed)
	if len(runes) <= conversationTitleMaxLen {
		return trimmed
	}
	return string(runes[:conversationTitleMaxLen]) + "..."
}
