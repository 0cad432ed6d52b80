package controller

import (
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/pkg/serverutils"
	"rag-patient-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDialogController interface {
	RegisterRoutes(r fiber.Router, rateLimit fiber.Handler)
	Turn(ctx *fiber.Ctx) error
}

type dialogController struct {
	turnService service.ITurnService
}

func NewDialogController(turnService service.ITurnService) IDialogController {
	return &dialogController{
		turnService: turnService,
	}
}

// RegisterRoutes mounts the turn endpoint. The rate limiter wraps only this
// route, admission happens before the body is parsed.
func (c *dialogController) RegisterRoutes(r fiber.Router, rateLimit fiber.Handler) {
	h := r.Group("/dialog")
	h.Post("turn", rateLimit, c.Turn)
}

func (c *dialogController) Turn(ctx *fiber.Ctx) error {
	var req dto.TurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.turnService.Process(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Turn processed", res))
}
