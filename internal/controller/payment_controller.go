package controller

import (
	"encoding/json"
	"errors"

	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/pkg/serverutils"
	"ai-interior-design-be/internal/service"
	"ai-interior-design-be/pkg/payment"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	Notification(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
	logger  logger.ILogger
}

func NewPaymentController(service service.IPaymentService, logger logger.ILogger) IPaymentController {
	return &paymentController{service: service, logger: logger}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payment")
	h.Post("/midtrans/notification", c.Notification)
}

// Notification answers 200 unless the failure is transient, in which case a 500 makes
// Midtrans deliver again. Purchases are idempotent per transaction id.
func (c *paymentController) Notification(ctx *fiber.Ctx) error {
	ack := serverutils.SuccessResponse("Notification received", fiber.Map{"received": true})

	var n payment.Notification
	if err := json.Unmarshal(ctx.Body(), &n); err != nil {
		c.logger.Warn("PAYMENT", "Undecodable notification body", map[string]interface{}{"error": err.Error()})
		return ctx.JSON(ack)
	}

	err := c.service.HandleNotification(ctx.UserContext(), &n)
	switch {
	case err == nil:
		return ctx.JSON(ack)
	case errors.Is(err, payment.ErrSignatureVerification), errors.Is(err, apperror.ErrValidation):
		return ctx.JSON(ack)
	default:
		c.logger.Error("PAYMENT", "Notification processing failed", map[string]interface{}{
			"order_id": n.OrderId,
			"error":    err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "notification processing failed"))
	}
}
