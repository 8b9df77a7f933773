package handlers

import (
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UsageHandler struct {
	quota *services.QuotaService
}

func NewUsageHandler(quota *services.QuotaService) *UsageHandler {
	return &UsageHandler{quota: quota}
}

func (h *UsageHandler) Stats(c *fiber.Ctx) error {
	userID, sessionID := middleware.Identity(c)

	stats, err := h.quota.UsageStats(userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: stats})
}
