package controller

import (
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/pkg/serverutils"
	"rag-patient-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ShowSettings(ctx *fiber.Ctx) error
	UpdateSettings(ctx *fiber.Ctx) error
}

type adminController struct {
	settingsService service.ISettingsService
	enabled         bool
}

func NewAdminController(settingsService service.ISettingsService, enabled bool) IAdminController {
	return &adminController{
		settingsService: settingsService,
		enabled:         enabled,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(c.requireEnabled)
	h.Get("settings", c.ShowSettings)
	h.Patch("settings", c.UpdateSettings)
}

// requireEnabled hides the whole admin surface on deployments that run
// without it. 404 rather than 403 so the routes stay invisible.
func (c *adminController) requireEnabled(ctx *fiber.Ctx) error {
	if !c.enabled {
		return fiber.NewError(fiber.StatusNotFound, "Cannot "+ctx.Method()+" "+ctx.Path())
	}
	return ctx.Next()
}

func (c *adminController) ShowSettings(ctx *fiber.Ctx) error {
	res, err := c.settingsService.Show(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get settings", res))
}

func (c *adminController) UpdateSettings(ctx *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.settingsService.Update(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update settings", res))
}
