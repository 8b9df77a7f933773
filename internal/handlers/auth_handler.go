package handlers

import (
	"github.com/echowrite/echowrite/internal/apperr"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/echowrite/echowrite/internal/middleware"
	"github.com/echowrite/echowrite/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{Success: true, Data: resp})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: resp})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	resp, err := h.authService.VerifyEmail(&req)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: resp})
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	if err := h.authService.ResendVerification(&req); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Verification code sent"})
}

func (h *AuthHandler) VerifyDevice(c *fiber.Ctx) error {
	var req dto.VerifyDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	resp, err := h.authService.VerifyDevice(&req)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: resp})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: resp})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	if err := h.authService.Logout(&req); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	if err := h.authService.ForgotPassword(&req); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "If the email exists, a reset code has been sent"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Message: "Password has been reset"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == nil {
		return apperr.Unauthorized("Authentication required")
	}

	user, err := h.authService.GetUser(*userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: dto.UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		IsEmailVerified: user.IsEmailVerified,
	}})
}
