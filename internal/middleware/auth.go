package middleware

import (
	"strings"

	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Success: false,
				Error: dto.ErrorBody{
					Code:    "UNAUTHORIZED",
					Message: "Invalid or expired token",
				},
			})
		},
	})
}

// OptionalJWT parses a bearer token when present but never rejects the
// request. Endpoints shared between anonymous sessions and signed-in
// users resolve their caller afterwards via Identity.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	protected := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
	})
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.Next()
		}
		if err := protected(c); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Success: false,
				Error: dto.ErrorBody{
					Code:    "UNAUTHORIZED",
					Message: "Invalid or expired token",
				},
			})
		}
		return nil
	}
}

// GetUserID extracts the authenticated user id from the JWT, if any.
func GetUserID(c *fiber.Ctx) *uuid.UUID {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil
	}
	return &id
}

// GetSessionID extracts the anonymous session id from the X-Session-ID
// header, if present and well formed.
func GetSessionID(c *fiber.Ctx) *uuid.UUID {
	raw := c.Get("X-Session-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// Identity resolves the caller for mixed endpoints: an authenticated
// user id, an anonymous session id, or neither.
func Identity(c *fiber.Ctx) (userID, sessionID *uuid.UUID) {
	userID = GetUserID(c)
	if userID == nil {
		sessionID = GetSessionID(c)
	}
	return userID, sessionID
}
