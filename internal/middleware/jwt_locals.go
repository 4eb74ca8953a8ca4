package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/utils"
)

// attach exposes the verified claims as "userId" (uuid.UUID) and "role"
// locals.
func attach(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*utils.Claims)
	if !ok || claims == nil {
		return fiber.ErrUnauthorized
	}

	uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals("userId", uid)
	c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))
	return nil
}
