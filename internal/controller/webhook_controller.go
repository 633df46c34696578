package controller

import (
	"encoding/json"

	"ai-interior-design-be/internal/pkg/logger"
	"ai-interior-design-be/internal/service"
	"ai-interior-design-be/pkg/replicate"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Replicate(ctx *fiber.Ctx) error
}

type webhookController struct {
	service service.IDesignService
	logger  logger.ILogger
}

func NewWebhookController(service service.IDesignService, logger logger.ILogger) IWebhookController {
	return &webhookController{service: service, logger: logger}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhooks")
	h.Post("/replicate", c.Replicate)
}

// Replicate always acknowledges; a non-2xx would only make the provider retry forever.
func (c *webhookController) Replicate(ctx *fiber.Ctx) error {
	var obs replicate.Prediction
	if err := json.Unmarshal(ctx.Body(), &obs); err != nil {
		c.logger.Warn("WEBHOOK", "Undecodable provider webhook", map[string]interface{}{"error": err.Error()})
		return ctx.JSON(fiber.Map{"received": true})
	}

	if err := c.service.HandleProviderWebhook(ctx.UserContext(), &obs); err != nil {
		c.logger.Error("WEBHOOK", "Provider webhook processing failed", map[string]interface{}{
			"prediction_id": obs.ID,
			"status":        obs.Status,
			"error":         err.Error(),
		})
	}
	return ctx.JSON(fiber.Map{"received": true})
}
