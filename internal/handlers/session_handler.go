package handlers

import (
	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/echowrite/echowrite/internal/models"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	session, err := h.sessionService.CreateSession()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: sessionResponse(session)})
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid session id")
	}

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: sessionResponse(session)})
}

// Claim transfers an anonymous session's conversations to the
// authenticated user.
func (h *SessionHandler) Claim(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid session id")
	}

	claimed, err := h.sessionService.ClaimSession(sessionID, *userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: dto.ClaimSessionResponse{
		ConversationsClaimed: claimed,
	}})
}

func sessionResponse(s *models.AnonymousSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:                 s.ID,
		ConversationsUsed:  s.ConversationsUsed,
		ConversationsLimit: s.ConversationsLimit,
		ExpiresAt:          s.ExpiresAt,
	}
}
