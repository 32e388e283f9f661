package handlers

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"phrasevid/errors"
)

// NewErrorHandler builds the app-wide fiber error handler. Application
// errors carry their own status code and client-safe message; anything
// else is logged and masked as a 500.
func NewErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	log := logger.With().Str("component", "error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var appErr *errors.AppError
		var fiberErr *fiber.Error

		switch {
		case stderrors.As(err, &appErr):
			code = appErr.Code
			message = appErr.Message

			event := log.Error()
			if code < fiber.StatusInternalServerError {
				event = log.Warn()
			}
			event.Err(err).
				Str("op", appErr.Op).
				Str("kind", string(appErr.Kind)).
				Int("status", code).
				Str("path", c.Path()).
				Msg("Request failed")

		case stderrors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message

		default:
			log.Error().Err(err).
				Str("path", c.Path()).
				Msg("Unhandled error")
		}

		requestID, _ := c.Locals("requestid").(string)
		return c.Status(code).JSON(fiber.Map{
			"success":    false,
			"error":      message,
			"request_id": requestID,
		})
	}
}
