package controller

import (
	"io"
	"strings"

	"ai-interior-design-be/internal/dto"
	"ai-interior-design-be/internal/pkg/apperror"
	"ai-interior-design-be/internal/pkg/serverutils"
	"ai-interior-design-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MaxImageBytes bounds the uploaded room photo.
const MaxImageBytes = 10 * 1024 * 1024

type IDesignController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Generate(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type designController struct {
	service   service.IDesignService
	jwtSecret string
}

func NewDesignController(service service.IDesignService, jwtSecret string) IDesignController {
	return &designController{service: service, jwtSecret: jwtSecret}
}

func (c *designController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/designs", serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("/", c.Create)
	h.Post("/generate", c.Generate)
	h.Get("/", c.List)
	h.Get("/:id", c.Show)
	h.Get("/:id/status", c.Status)
	h.Post("/:id/retry", c.Retry)
}

func (c *designController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	req := dto.CreateDesignRequest{
		RoomType: strings.TrimSpace(ctx.FormValue("room_type")),
		Style:    strings.TrimSpace(ctx.FormValue("style")),
	}
	if desc := ctx.FormValue("description"); desc != "" {
		req.Description = &desc
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	image, err := readImage(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), userId, &req, image)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Design created", res))
}

func readImage(ctx *fiber.Ctx) (*dto.UploadedImage, error) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrValidation, "image is required")
	}
	if fh.Size > MaxImageBytes {
		return nil, apperror.Wrap(apperror.ErrValidation, "image must be at most 10MB")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, apperror.Wrap(apperror.ErrValidation, "image must be at most 10MB")
	}

	return &dto.UploadedImage{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func (c *designController) Generate(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.GenerateDesignRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Generate(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Generation started", res))
}

func (c *designController) Status(ctx *fiber.Ctx) error {
	userId, designId, err := ownerAndDesign(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetStatus(ctx.UserContext(), userId, designId, ctx.Query("prediction_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *designController) Retry(ctx *fiber.Ctx) error {
	userId, designId, err := ownerAndDesign(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Retry(ctx.UserContext(), userId, designId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Generation restarted", res))
}

func (c *designController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), userId, ctx.QueryInt("limit", 0), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *designController) Show(ctx *fiber.Ctx) error {
	userId, designId, err := ownerAndDesign(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Get(ctx.UserContext(), userId, designId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func ownerAndDesign(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	designId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperror.Wrap(apperror.ErrNotFound, "design %s not found", ctx.Params("id"))
	}
	return userId, designId, nil
}
