package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"mecanix/internal/core/types"
	"mecanix/internal/domain/stock"
	"mecanix/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock catalog and ledger.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Register handles POST /stock/items
func (h *StockHandler) Register(c *gin.Context) {
	var req dto.RegisterStockItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item := req.ToItem()
	if err := h.service.RegisterItem(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, item.ID.String())
}

// Update handles PUT /stock/items/:id
func (h *StockHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStockItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	item.SKU = req.SKU
	item.Name = req.Name
	item.MinStockLevel = req.MinStockLevel
	item.UnitCost = types.MinorUnits(req.UnitCost)
	item.UnitSalePrice = types.MinorUnits(req.UnitSalePrice)
	item.Version = req.Version
	item.Touch()

	if err := h.service.UpdateItem(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockItem(item))
}

// Delete handles DELETE /stock/items/:id (soft delete)
func (h *StockHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.MarkItemDeleted(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Restore handles POST /stock/items/:id/restore (clears the soft delete)
func (h *StockHandler) Restore(c *gin.Context) {
	itemID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.RestoreItem(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Get handles GET /stock/items/:id
func (h *StockHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockItem(item))
}

// List handles GET /stock/items. Passing belowMinimum=true turns the
// listing into the low-stock report.
func (h *StockHandler) List(c *gin.Context) {
	filter := stock.ListFilter{
		ListFilter:   h.ListFilter(c),
		BelowMinimum: c.Query("belowMinimum") == "true",
	}

	result, err := h.service.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.StockItemResponse]{
		Items:      dto.FromStockItems(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// ApplyMovement handles POST /stock/items/:id/movements
func (h *StockHandler) ApplyMovement(c *gin.Context) {
	itemID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movement, err := h.service.ApplyMovement(c.Request.Context(), itemID,
		stock.MovementType(req.Type), req.Quantity, req.Options())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(movement))
}

// AmendMovement handles PUT /stock/movements/:id
func (h *StockHandler) AmendMovement(c *gin.Context) {
	movementID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	movement, err := h.service.AmendMovement(c.Request.Context(), movementID,
		stock.MovementType(req.Type), req.Quantity, req.Options())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(movement))
}

// Movements handles GET /stock/items/:id/movements
func (h *StockHandler) Movements(c *gin.Context) {
	itemID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	filter := stock.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if raw := c.Query("type"); raw != "" {
		mType := stock.MovementType(raw)
		filter.Type = &mType
	}

	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.FromDate = &parsed
		}
	}
	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.ToDate = &parsed
		}
	}

	movements, err := h.service.Movements(c.Request.Context(), itemID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovements(movements))
}
