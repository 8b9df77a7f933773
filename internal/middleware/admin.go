package middleware

import (
	"strings"

	"github.com/echowrite/echowrite/internal/config"
	"github.com/echowrite/echowrite/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminRequired admits requests carrying the configured admin token
// header, or a JWT whose email is on the admin list.
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}

		token, ok := c.Locals("user").(*jwt.Token)
		if ok && token != nil {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				email, _ := claims["email"].(string)
				if contains(adminEmails, email) {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Success: false,
			Error: dto.ErrorBody{
				Code:    "FORBIDDEN",
				Message: "Admin access required",
			},
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
