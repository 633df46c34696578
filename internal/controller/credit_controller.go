package controller

import (
	"ai-interior-design-be/internal/dto"
	"ai-interior-design-be/internal/pkg/serverutils"
	"ai-interior-design-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICreditController interface {
	RegisterRoutes(r fiber.Router)
	Balance(ctx *fiber.Ctx) error
	Packages(ctx *fiber.Ctx) error
	Purchases(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
}

type creditController struct {
	service   service.ICreditService
	jwtSecret string
}

func NewCreditController(service service.ICreditService, jwtSecret string) ICreditController {
	return &creditController{service: service, jwtSecret: jwtSecret}
}

func (c *creditController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/credits")
	h.Get("/packages", c.Packages)

	auth := serverutils.JwtMiddleware(c.jwtSecret)
	h.Get("/", auth, c.Balance)
	h.Get("/purchases", auth, c.Purchases)
	h.Post("/checkout", auth, c.Checkout)
}

func (c *creditController) Balance(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GetBalance(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *creditController) Packages(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success", c.service.GetPackages(ctx.UserContext())))
}

func (c *creditController) Purchases(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ListPurchases(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *creditController) Checkout(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CheckoutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Checkout(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout created", res))
}
