package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/pkg/replicate"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a service error onto an HTTP status and the message shown to the client.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	var providerErr *replicate.ProviderError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, apperror.ErrForbidden):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, apperror.ErrInsufficientCredits):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrConflict):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, replicate.ErrProviderUnavailable):
		return fiber.StatusServiceUnavailable, err.Error()
	case errors.As(err, &providerErr):
		return fiber.StatusBadGateway, fmt.Sprintf("image generation provider responded %d", providerErr.StatusCode)
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// ErrorHandler is installed as fiber.Config.ErrorHandler.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code, msg := StatusFor(err)
	return ctx.Status(code).JSON(ErrorResponse(code, msg))
}

// ErrorHandlerMiddleware turns panics into a 500 envelope and lets returned errors
// flow to ErrorHandler.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s %s: %v", ctx.Method(), strings.TrimSpace(ctx.Path()), r)
			}
		}()
		return ctx.Next()
	}
}
