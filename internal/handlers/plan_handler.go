package handlers

import (
	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PlanHandler struct {
	plans *services.PlanService
}

func NewPlanHandler(plans *services.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

func (h *PlanHandler) List(c *fiber.Ctx) error {
	plans, err := h.plans.ListActive()
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: plans})
}

func (h *PlanHandler) Create(c *fiber.Ctx) error {
	var input services.PlanInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	plan, err := h.plans.Create(&input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: plan})
}

func (h *PlanHandler) Update(c *fiber.Ctx) error {
	planID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid plan id")
	}

	var input services.PlanInput
	if err := c.BodyParser(&input); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	plan, err := h.plans.Update(planID, &input)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: plan})
}

func (h *PlanHandler) Deactivate(c *fiber.Ctx) error {
	planID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid plan id")
	}

	if err := h.plans.Deactivate(planID); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Plan deactivated"})
}
