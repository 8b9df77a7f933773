package dto

import "github.com/google/uuid"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type VerifyDeviceRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	DeviceID string `json:"device_id"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	IsEmailVerified bool      `json:"is_email_verified"`
}

// AuthResponse is returned by register, login and the verification
// endpoints. Tokens are empty while a verification step is pending.
type AuthResponse struct {
	AccessToken                string       `json:"access_token,omitempty"`
	RefreshToken               string       `json:"refresh_token,omitempty"`
	User                       UserResponse `json:"user"`
	RequiresEmailVerification  bool         `json:"requires_email_verification,omitempty"`
	RequiresDeviceVerification bool         `json:"requires_device_verification,omitempty"`
	Message                    string       `json:"message,omitempty"`
}

type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}
