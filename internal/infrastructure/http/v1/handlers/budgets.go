package handlers

import (
	"github.com/gin-gonic/gin"

	"mecanix/internal/domain/budgets"
	"mecanix/internal/infrastructure/http/v1/dto"
)

// BudgetsHandler handles HTTP requests for repair budgets.
type BudgetsHandler struct {
	*BaseHandler
	service *budgets.Service
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(base *BaseHandler, service *budgets.Service) *BudgetsHandler {
	return &BudgetsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get handles GET /budgets/:id
func (h *BudgetsHandler) Get(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	budget, err := h.service.GetWithItems(c.Request.Context(), budgetID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}

// GetByOrder handles GET /orders/:id/budget
func (h *BudgetsHandler) GetByOrder(c *gin.Context) {
	orderID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	budget, err := h.service.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	full, err := h.service.GetWithItems(c.Request.Context(), budget.ID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(full))
}

// List handles GET /budgets
func (h *BudgetsHandler) List(c *gin.Context) {
	filter := budgets.ListFilter{ListFilter: h.ListFilter(c)}

	clientID, ok := h.ParseQueryID(c, "clientId")
	if !ok {
		return
	}
	filter.ClientID = clientID

	if raw := c.Query("status"); raw != "" {
		status := budgets.Status(raw)
		filter.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.BudgetResponse]{
		Items:      dto.FromBudgets(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// AddItem handles POST /budgets/:id/items
func (h *BudgetsHandler) AddItem(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.AddBudgetItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := req.ToItem()
	if err != nil {
		h.Error(c, err)
		return
	}

	budget, err := h.service.AddItem(c.Request.Context(), budgetID, item)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}

// RemoveItem handles DELETE /budgets/:id/items/:itemId
func (h *BudgetsHandler) RemoveItem(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.ParseParamID(c, "itemId")
	if !ok {
		return
	}

	budget, err := h.service.RemoveItem(c.Request.Context(), budgetID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}

// Send handles POST /budgets/:id/send
func (h *BudgetsHandler) Send(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	budget, err := h.service.Send(c.Request.Context(), budgetID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}

// Approve handles POST /budgets/:id/approve
func (h *BudgetsHandler) Approve(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	budget, err := h.service.Approve(c.Request.Context(), budgetID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}

// Reject handles POST /budgets/:id/reject
func (h *BudgetsHandler) Reject(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.RejectBudgetRequest
	if !h.BindJSON(c, &req) {
		return
	}

	budget, err := h.service.Reject(c.Request.Context(), budgetID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}

// Regenerate handles POST /budgets/:id/regenerate
func (h *BudgetsHandler) Regenerate(c *gin.Context) {
	budgetID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	budget, err := h.service.Regenerate(c.Request.Context(), budgetID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBudget(budget))
}
