package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"krishighor/internal/domain"
	applog "krishighor/internal/log"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrPayment):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes {success:false, error}. Server-side failures are logged and
// replaced with a generic message so store details never reach clients.
func fail(c *fiber.Ctx, action string, err error, extra fiber.Map) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		applog.Error(c, action, err, nil)
		msg = "Something went wrong. Please try again."
	} else {
		applog.Warn(c, action, map[string]any{"status": status, "reason": msg})
	}
	body := fiber.Map{"success": false, "error": msg}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	applog.Warn(c, "request.invalid", map[string]any{"reason": msg})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
}
