package handlers

import (
	"github.com/gin-gonic/gin"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain/orders"
	"mecanix/internal/infrastructure/http/v1/dto"
)

// OrdersHandler handles HTTP requests for repair orders.
type OrdersHandler struct {
	*BaseHandler
	service *orders.Service
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(base *BaseHandler, service *orders.Service) *OrdersHandler {
	return &OrdersHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders
func (h *OrdersHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	clientID, err := id.Parse(req.ClientID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid clientId format").WithDetail("field", "clientId"))
		return
	}
	vehicleID, err := id.Parse(req.VehicleID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid vehicleId format").WithDetail("field", "vehicleId"))
		return
	}

	order, err := h.service.Intake(c.Request.Context(), clientID, vehicleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, order.ID.String())
}

// Get handles GET /orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// List handles GET /orders
func (h *OrdersHandler) List(c *gin.Context) {
	filter := orders.ListFilter{ListFilter: h.ListFilter(c)}

	clientID, ok := h.ParseQueryID(c, "clientId")
	if !ok {
		return
	}
	filter.ClientID = clientID

	if raw := c.Query("status"); raw != "" {
		status := orders.Status(raw)
		filter.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.OrderResponse]{
		Items:      dto.FromOrders(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// ChangeStatus handles POST /orders/:id/status
func (h *OrdersHandler) ChangeStatus(c *gin.Context) {
	orderID, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	var req dto.ChangeOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.ChangeStatus(c.Request.Context(), orderID, orders.Status(req.Status), orders.ChangeStatusOptions{
		Reason:       req.Reason,
		DeliveryDate: req.DeliveryDate,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}
