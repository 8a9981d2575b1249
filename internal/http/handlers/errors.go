// Package handlers implements the HTTP endpoints of the service.
package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
)

// statusFor maps a domain error to its HTTP status and client message. A
// timeout wins over the stage it interrupted.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout, "Request took too long"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidDimension):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrImageLoad), errors.Is(err, domain.ErrImageFetch):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "A request with this idempotency key is still in progress"
	case errors.Is(err, domain.ErrUpload):
		return fiber.StatusServiceUnavailable, "Storing the artwork failed, please try again"
	case errors.Is(err, domain.ErrNotConfigured):
		return fiber.StatusServiceUnavailable, err.Error()
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

// toFiberError converts err for the app's error handler. Fiber errors pass through.
func toFiberError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	code, msg := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		logging.Error("Request failed", "path", c.Path(), "status", code, "error", err, "request_id", requestID(c))
	} else {
		logging.Warn("Request rejected", "path", c.Path(), "status", code, "error", err, "request_id", requestID(c))
	}
	return fiber.NewError(code, msg)
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
