package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/utils"
)

// Session verifies the session token from the cookie, falling back to an
// Authorization bearer header, and attaches its locals.
func Session(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := verify(c, secret); err != nil {
			return err
		}
		if err := attach(c); err != nil {
			return err
		}
		return c.Next()
	}
}

func verify(c *fiber.Ctx, secret string) error {
	tokenStr := TokenFrom(c)
	if tokenStr == "" {
		return fiber.ErrUnauthorized
	}

	claims, err := utils.ParseJWT(secret, tokenStr)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	c.Locals("user", claims)
	return nil
}

// TokenFrom returns the raw session token of the request, if any.
func TokenFrom(c *fiber.Ctx) string {
	if tok := c.Cookies(utils.CookieName); tok != "" {
		return tok
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
