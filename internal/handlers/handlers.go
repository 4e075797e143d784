package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"codejournal/internal/repositories"
	"codejournal/internal/services"
)

// statusForError maps tagged error kinds to HTTP status codes. Anything
// untagged is a server error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, services.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUsernameTaken):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the {success:false, error} envelope with the mapped status.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

// badRequest writes a 400 with a fixed message.
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// pathUserID parses the :userId route parameter.
func pathUserID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("userId"), 10, 64)
}
