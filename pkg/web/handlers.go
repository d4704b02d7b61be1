package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/siteforge/relay/pkg/eventbus"
	"github.com/siteforge/relay/pkg/events"
	"github.com/siteforge/relay/pkg/models"
	"github.com/siteforge/relay/pkg/persistence"
	"github.com/siteforge/relay/pkg/registry"
	"github.com/siteforge/relay/pkg/workflow"
)

type APIHandlers struct {
	repository *workflow.Repository
	executions persistence.ExecutionRepository
	publisher  eventbus.EventPublisher
	validator  *validator.Validate
	registry   *registry.Registry
	logger     *slog.Logger
}

func NewAPIHandlers(
	repository *workflow.Repository,
	executions persistence.ExecutionRepository,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
	registry *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		repository: repository,
		executions: executions,
		publisher:  publisher,
		validator:  validator,
		registry:   registry,
		logger:     logger,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	siteID := c.Params("siteId")
	if siteID == "" {
		return badRequest(c, "Site ID is required")
	}

	workflows, err := h.repository.FetchAll(c.Context(), siteID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	found, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	siteID := c.Params("siteId")
	if siteID == "" {
		return badRequest(c, "Site ID is required")
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if detail, ok := h.checkTypes(req.TriggerType, req.Steps); !ok {
		return badRequest(c, detail)
	}

	created, err := h.repository.Create(c.Context(), &models.Workflow{
		SiteID:        siteID,
		Name:          req.Name,
		Description:   req.Description,
		TriggerType:   models.TriggerType(req.TriggerType),
		TriggerConfig: req.TriggerConfig,
		Active:        req.Active,
		Steps:         stepsToModels(req.Steps),
	})
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	triggerType := ""
	if req.TriggerType != nil {
		triggerType = *req.TriggerType
	}

	if detail, ok := h.checkTypes(triggerType, req.Steps); !ok {
		return badRequest(c, detail)
	}

	existing, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.TriggerType != nil {
		existing.TriggerType = models.TriggerType(*req.TriggerType)
	}

	if req.TriggerConfig != nil {
		existing.TriggerConfig = req.TriggerConfig
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	if req.Steps != nil {
		existing.Steps = stepsToModels(req.Steps)
	}

	updated, err := h.repository.Update(c.Context(), id, existing)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.repository.Delete(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// FireTrigger accepts a trigger firing for a site and hands it to the
// workers through the event bus. The request body, when present, becomes
// the trigger data visible to steps under {{trigger.*}}.
func (h *APIHandlers) FireTrigger(c fiber.Ctx) error {
	siteID := c.Params("siteId")
	if siteID == "" {
		return badRequest(c, "Site ID is required")
	}

	triggerType := models.TriggerType(c.Params("triggerType"))
	if !triggerType.IsValid() {
		return badRequest(c, "Unknown trigger type: "+string(triggerType))
	}

	triggerData := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&triggerData); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, siteID, ""),
		TriggerType: triggerType,
		TriggerData: triggerData,
	}

	err := h.publisher.Publish(c.Context(), siteID, event)
	if err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to publish trigger event",
			"site_id", siteID, "trigger_type", triggerType, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted":     true,
		"event_id":     event.ID,
		"trigger_type": triggerType,
	})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	executions, err := h.executions.ExecutionsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"count":      len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executions.ExecutionByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionSteps(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	logs, err := h.executions.StepLogsByExecution(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"steps": logs,
		"count": len(logs),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.repository.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Relay API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Relay API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"actions":    len(h.registry.ActionTypes()),
		},
		"timestamp": time.Now().UTC(),
	})
}

// checkTypes rejects trigger and action types the engine cannot serve. An
// empty triggerType is skipped so partial updates can omit it.
func (h *APIHandlers) checkTypes(triggerType string, steps []StepRequest) (string, bool) {
	if triggerType != "" && !models.TriggerType(triggerType).IsValid() {
		return "Unknown trigger type: " + triggerType, false
	}

	for _, step := range steps {
		if !h.registry.HasAction(models.ActionType(step.ActionType)) {
			return "Unknown action type: " + step.ActionType, false
		}
	}

	return "", true
}
