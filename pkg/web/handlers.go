package web

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/dukex/mailflow/pkg/services"
)

type APIHandlers struct {
	flows     *services.Flows
	sources   *services.LeadSources
	templates *services.EmailTemplates
}

func NewAPIHandlers(
	flows *services.Flows,
	sources *services.LeadSources,
	templates *services.EmailTemplates,
) *APIHandlers {
	return &APIHandlers{
		flows:     flows,
		sources:   sources,
		templates: templates,
	}
}

// Register mounts every authenticated route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflow", Authenticate)
	w.Post("/save", h.SaveFlow)
	w.Post("/save-and-start", h.SaveAndStartFlow)
	w.Get("/getAll", h.GetFlows)
	w.Get("/get/:id", h.GetFlow)
	w.Patch("/update/:id", h.UpdateFlow)
	w.Patch("/update-and-start/:id", h.UpdateAndStartFlow)
	w.Post("/start-scheduler/:id", h.StartFlow)
	w.Post("/stop-scheduler/:id", h.StopFlow)
	w.Delete("/delete/:id", h.DeleteFlow)

	ls := router.Group("/lead-source", Authenticate)
	ls.Post("/create", h.CreateLeadSource)
	ls.Get("/getAll", h.GetLeadSources)
	ls.Put("/update/:id", h.UpdateLeadSource)
	ls.Patch("/update/:id", h.UpdateLeadSource)
	ls.Delete("/delete/:id", h.DeleteLeadSource)

	et := router.Group("/email-template", Authenticate)
	et.Post("/create", h.CreateEmailTemplate)
	et.Get("/getAll", h.GetEmailTemplates)
	et.Put("/update/:id", h.UpdateEmailTemplate)
	et.Patch("/update/:id", h.UpdateEmailTemplate)
	et.Delete("/delete/:id", h.DeleteEmailTemplate)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Mailflow API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.flows.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Mailflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// bindFlow checks the body against the flow schema and decodes it. On failure
// it returns the problem detail.
func bindFlow(c fiber.Ctx, req *FlowRequest) (string, bool) {
	if err := validateFlowPayload(c.Body()); err != nil {
		return err.Error(), false
	}

	if err := c.Bind().JSON(req); err != nil {
		return "Invalid JSON format", false
	}

	return "", true
}

func (h *APIHandlers) SaveFlow(c fiber.Ctx) error {
	var req FlowRequest
	if detail, ok := bindFlow(c, &req); !ok {
		return badRequest(c, detail)
	}

	flow, err := h.flows.Save(c.Context(), ownerFrom(c), req.input())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) SaveAndStartFlow(c fiber.Ctx) error {
	var req FlowRequest
	if detail, ok := bindFlow(c, &req); !ok {
		return badRequest(c, detail)
	}

	result, err := h.flows.SaveAndStart(c.Context(), ownerFrom(c), req.input())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flows.List(c.Context(), ownerFrom(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.flows.Get(c.Context(), ownerFrom(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	var req FlowRequest
	if detail, ok := bindFlow(c, &req); !ok {
		return badRequest(c, detail)
	}

	flow, err := h.flows.Update(c.Context(), ownerFrom(c), c.Params("id"), req.input())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) UpdateAndStartFlow(c fiber.Ctx) error {
	var req FlowRequest
	if detail, ok := bindFlow(c, &req); !ok {
		return badRequest(c, detail)
	}

	result, err := h.flows.UpdateAndStart(c.Context(), ownerFrom(c), c.Params("id"), req.input())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) StartFlow(c fiber.Ctx) error {
	result, err := h.flows.Start(c.Context(), ownerFrom(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) StopFlow(c fiber.Ctx) error {
	flow, err := h.flows.Stop(c.Context(), ownerFrom(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	if err := h.flows.Delete(c.Context(), ownerFrom(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
