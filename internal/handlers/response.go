package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
)

func ok(c *fiber.Ctx, status int, message string, data interface{}) error {
	resp := fiber.Map{
		"success": true,
		"message": message,
	}
	if data != nil {
		resp["data"] = data
	}
	return c.Status(status).JSON(resp)
}

// fail renders a service error in the response envelope.
func fail(c *fiber.Ctx, err error) error {
	e := apperr.From(err)
	if e.Kind == apperr.KindPersistence {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(e.Status()).JSON(fiber.Map{
		"success": false,
		"message": e.Message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return fail(c, apperr.Validation(message))
}

// ErrorHandler renders errors returned by middleware and routing in the
// same envelope as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}
	return fail(c, err)
}

func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	uid, okID := c.Locals("userId").(uuid.UUID)
	if !okID || uid == uuid.Nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return uid, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}
