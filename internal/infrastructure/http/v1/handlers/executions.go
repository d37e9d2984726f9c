package handlers

import (
	"github.com/gin-gonic/gin"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain/executions"
	"mecanix/internal/infrastructure/http/v1/dto"
)

// ExecutionsHandler handles HTTP requests for repair executions.
type ExecutionsHandler struct {
	*BaseHandler
	service *executions.Service
}

// NewExecutionsHandler creates a new executions handler.
func NewExecutionsHandler(base *BaseHandler, service *executions.Service) *ExecutionsHandler {
	return &ExecutionsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get handles GET /executions/:id
func (h *ExecutionsHandler) Get(c *gin.Context) {
	executionID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	execution, err := h.service.Get(c.Request.Context(), executionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromExecution(execution))
}

// GetByOrder handles GET /orders/:id/execution
func (h *ExecutionsHandler) GetByOrder(c *gin.Context) {
	orderID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	execution, err := h.service.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromExecution(execution))
}

// List handles GET /executions
func (h *ExecutionsHandler) List(c *gin.Context) {
	filter := executions.ListFilter{ListFilter: h.ListFilter(c)}

	mechanicID, ok := h.ParseQueryID(c, "mechanicId")
	if !ok {
		return
	}
	filter.MechanicID = mechanicID

	if raw := c.Query("status"); raw != "" {
		status := executions.Status(raw)
		filter.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.ExecutionResponse]{
		Items:      dto.FromExecutions(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// AssignMechanic handles POST /executions/:id/assign
func (h *ExecutionsHandler) AssignMechanic(c *gin.Context) {
	executionID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.AssignMechanicRequest
	if !h.BindJSON(c, &req) {
		return
	}

	mechanicID, err := id.Parse(req.MechanicID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid mechanicId format").WithDetail("field", "mechanicId"))
		return
	}

	execution, err := h.service.AssignMechanic(c.Request.Context(), executionID, mechanicID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromExecution(execution))
}

// Start handles POST /executions/:id/start
func (h *ExecutionsHandler) Start(c *gin.Context) {
	executionID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	execution, err := h.service.Start(c.Request.Context(), executionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromExecution(execution))
}

// Complete handles POST /executions/:id/complete
func (h *ExecutionsHandler) Complete(c *gin.Context) {
	executionID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.CompleteExecutionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	execution, err := h.service.Complete(c.Request.Context(), executionID, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromExecution(execution))
}
