package handlers

import (
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	stripe *services.StripeService
}

func NewWebhookHandler(stripe *services.StripeService) *WebhookHandler {
	return &WebhookHandler{stripe: stripe}
}

// Stripe receives billing events. The raw body is passed through for
// signature verification.
func (h *WebhookHandler) Stripe(c *fiber.Ctx) error {
	if err := h.stripe.HandleWebhook(c.Body(), c.Get("Stripe-Signature")); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}
