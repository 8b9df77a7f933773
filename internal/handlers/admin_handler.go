package handlers

import (
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/jobs"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes one-off triggers for the background jobs.
type AdminHandler struct {
	runner   *jobs.Runner
	sessions *services.SessionService
	subs     *services.SubscriptionService
}

func NewAdminHandler(runner *jobs.Runner, sessions *services.SessionService, subs *services.SubscriptionService) *AdminHandler {
	return &AdminHandler{runner: runner, sessions: sessions, subs: subs}
}

func (h *AdminHandler) ResetQuotas(c *fiber.Ctx) error {
	n, err := h.runner.ResetMonthlyQuotas()
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"users_reset": n}})
}

func (h *AdminHandler) SweepSessions(c *fiber.Ctx) error {
	n, err := h.sessions.CleanupExpiredSessions()
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"sessions_removed": n}})
}

func (h *AdminHandler) RunRenewals(c *fiber.Ctx) error {
	report, err := h.subs.ProcessAutoRenewals()
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: report})
}
