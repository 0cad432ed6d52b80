package controller

import (
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/pkg/serverutils"
	"rag-patient-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Link(ctx *fiber.Ctx) error
	Report(ctx *fiber.Ctx) error
	MissedKeys(ctx *fiber.Ctx) error
	Trajectory(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
	reportService  service.IReportService
}

func NewSessionController(sessionService service.ISessionService, reportService service.IReportService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
		reportService:  reportService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", c.Create)
	h.Post("link", c.Link)
	h.Get(":id", c.Show)
	h.Get(":id/report", c.Report)
	h.Get(":id/report/missed", c.MissedKeys)

	// Trajectory progress keeps its own top level path.
	r.Get("/trajectories/:sessionId", c.Trajectory)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id format")
	}

	res, err := c.sessionService.Show(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *sessionController) Link(ctx *fiber.Ctx) error {
	var req dto.LinkSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Link(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success link session", res))
}

func (c *sessionController) Report(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id format")
	}

	res, err := c.reportService.SessionReport(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session report", res))
}

func (c *sessionController) MissedKeys(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id format")
	}

	res, err := c.reportService.SessionMissedKeys(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get missed keys", res))
}

func (c *sessionController) Trajectory(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id format")
	}

	res, err := c.sessionService.Trajectory(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get trajectory progress", res))
}
