package controller

import (
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/pkg/serverutils"
	"rag-patient-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICaseController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Report(ctx *fiber.Ctx) error
}

type caseController struct {
	caseService   service.ICaseService
	reportService service.IReportService
	adminEnabled  bool
}

func NewCaseController(caseService service.ICaseService, reportService service.IReportService, adminEnabled bool) ICaseController {
	return &caseController{
		caseService:   caseService,
		reportService: reportService,
		adminEnabled:  adminEnabled,
	}
}

func (c *caseController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/cases")
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get(":id", c.Show)
	h.Get(":id/report", c.Report)
}

func (c *caseController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.caseService.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create case", res))
}

// Show returns the redacted case summary. The full truth is only exposed
// with ?full=1 on a deployment that has the admin surface enabled.
func (c *caseController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid case id format")
	}

	includeTruth := c.adminEnabled && ctx.QueryBool("full")

	res, err := c.caseService.Show(ctx.Context(), id, includeTruth)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get case", res))
}

func (c *caseController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.caseService.GetAll(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get cases", res))
}

func (c *caseController) Report(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid case id format")
	}

	res, err := c.reportService.CaseTrajectories(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get case report", res))
}
