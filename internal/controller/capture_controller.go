package controller

import (
	"ai-recorder-be/internal/dto"
	"ai-recorder-be/internal/pkg/serverutils"
	"ai-recorder-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICaptureController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Stop(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type captureController struct {
	recorderService service.IRecorderService
}

func NewCaptureController(recorderService service.IRecorderService) ICaptureController {
	return &captureController{
		recorderService: recorderService,
	}
}

func (c *captureController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/capture/v1")
	h.Use(serverutils.JwtMiddleware) // ✅ PROTECTED: Wajib login
	h.Post("start", c.Start)
	h.Post("stop", c.Stop)
	h.Get("status", c.Status)
}

func (c *captureController) Start(ctx *fiber.Ctx) error {
	// 1. Ambil User ID dari Token
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	// Body is optional, title and tags can be set later via update
	var req dto.StartCaptureRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	// 2. Kirim userId ke Service
	res, err := c.recorderService.StartCapture(ctx.Context(), userId, &req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Capture started", res))
}

func (c *captureController) Stop(ctx *fiber.Ctx) error {
	// 1. Ambil User ID dari Token
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.recorderService.StopCapture(ctx.Context(), userId)
	if err != nil {
		return err
	}

	if res.SessionId == nil {
		return ctx.JSON(serverutils.SuccessResponse("Capture stopped, nothing was observed", res))
	}
	return ctx.JSON(serverutils.SuccessResponse("Capture stopped", res))
}

func (c *captureController) Status(ctx *fiber.Ctx) error {
	res, err := c.recorderService.CaptureStatus(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get capture status", res))
}
