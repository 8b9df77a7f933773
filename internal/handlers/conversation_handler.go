package handlers

import (
	"strings"

	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	conversations *services.ConversationService
	chat          *services.ChatService
}

func NewConversationHandler(conversations *services.ConversationService, chat *services.ChatService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, chat: chat}
}

func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)

	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	conv, err := h.conversations.Create(userID, sessionID, req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: conv})
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)

	page, err := h.conversations.List(
		userID, sessionID,
		c.Query("search"),
		c.QueryInt("page", 1),
		c.QueryInt("limit", 20),
	)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: page})
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid conversation id")
	}

	conv, err := h.conversations.Get(conversationID, userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: conv})
}

func (h *ConversationHandler) Rename(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid conversation id")
	}

	var req dto.RenameConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperr.Validation("Title is required")
	}

	conv, err := h.conversations.Rename(conversationID, req.Title, userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: conv})
}

func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid conversation id")
	}

	if err := h.conversations.Delete(conversationID, userID, sessionID); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Conversation deleted"})
}

func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid conversation id")
	}

	messages, err := h.chat.Messages(conversationID, userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: messages})
}

func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)
	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid conversation id")
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperr.Validation("Message content is required")
	}

	result, err := h.chat.SendMessage(conversationID, req.Content, req.Language, req.InputType, userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: result})
}
