package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/mailflow/pkg/services"
)

func (h *APIHandlers) CreateLeadSource(c fiber.Ctx) error {
	var req LeadSourceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	source, err := h.sources.Create(c.Context(), ownerFrom(c), services.LeadSourceInput(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(source)
}

func (h *APIHandlers) GetLeadSources(c fiber.Ctx) error {
	sources, err := h.sources.List(c.Context(), ownerFrom(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(sources)
}

func (h *APIHandlers) UpdateLeadSource(c fiber.Ctx) error {
	var req LeadSourceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	source, err := h.sources.Update(c.Context(), ownerFrom(c), c.Params("id"), services.LeadSourceInput(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(source)
}

func (h *APIHandlers) DeleteLeadSource(c fiber.Ctx) error {
	if err := h.sources.Delete(c.Context(), ownerFrom(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateEmailTemplate(c fiber.Ctx) error {
	var req EmailTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	template, err := h.templates.Create(c.Context(), ownerFrom(c), services.EmailTemplateInput(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *APIHandlers) GetEmailTemplates(c fiber.Ctx) error {
	templates, err := h.templates.List(c.Context(), ownerFrom(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(templates)
}

func (h *APIHandlers) UpdateEmailTemplate(c fiber.Ctx) error {
	var req EmailTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	template, err := h.templates.Update(c.Context(), ownerFrom(c), c.Params("id"), services.EmailTemplateInput(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) DeleteEmailTemplate(c fiber.Ctx) error {
	if err := h.templates.Delete(c.Context(), ownerFrom(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
