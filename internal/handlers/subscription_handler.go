package handlers

import (
	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	stripe        *services.StripeService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, stripe *services.StripeService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, stripe: stripe}
}

func (h *SubscriptionHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	subs, err := h.subscriptions.ListByUser(*userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: subs})
}

func (h *SubscriptionHandler) Checkout(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	result, err := h.stripe.CreateCheckoutSession(*userID, req.Tier, req.BillingCycle)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: result})
}

// Verify confirms a completed checkout from the success redirect.
func (h *SubscriptionHandler) Verify(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		return apperr.Validation("session_id is required")
	}

	sub, err := h.stripe.VerifyCheckoutSession(sessionID, *userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: sub})
}

func (h *SubscriptionHandler) Portal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	url, err := h.stripe.CreatePortalSession(*userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: fiber.Map{"url": url}})
}

func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	subscriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid subscription id")
	}

	if err := h.subscriptions.Cancel(subscriptionID, *userID); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Subscription cancelled"})
}

func (h *SubscriptionHandler) ToggleAutoRenew(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	subscriptionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("Invalid subscription id")
	}

	sub, err := h.subscriptions.ToggleAutoRenew(subscriptionID, *userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: sub})
}
