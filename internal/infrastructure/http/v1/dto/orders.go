package dto

import (
	"time"

	"mecanix/internal/domain/orders"
)

// CreateOrderRequest opens a new repair order.
type CreateOrderRequest struct {
	ClientID  string `json:"clientId" binding:"required,uuid"`
	VehicleID string `json:"vehicleId" binding:"required,uuid"`
}

// ChangeOrderStatusRequest moves the order to a new status.
type ChangeOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	// Reason is recorded when cancelling.
	Reason string `json:"reason,omitempty"`
	// DeliveryDate applies when the target status is DELIVERED.
	DeliveryDate *time.Time `json:"deliveryDate,omitempty"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID                 string     `json:"id"`
	ClientID           string     `json:"clientId"`
	VehicleID          string     `json:"vehicleId"`
	Status             string     `json:"status"`
	RequestedAt        time.Time  `json:"requestedAt"`
	DeliveryDate       *time.Time `json:"deliveryDate,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// FromOrder converts an order to its response DTO.
func FromOrder(o *orders.Order) OrderResponse {
	return OrderResponse{
		ID:                 o.ID.String(),
		ClientID:           o.ClientID.String(),
		VehicleID:          o.VehicleID.String(),
		Status:             string(o.Status),
		RequestedAt:        o.RequestedAt,
		DeliveryDate:       o.DeliveryDate,
		CancellationReason: o.CancellationReason,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// FromOrders converts a slice of orders.
func FromOrders(items []*orders.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(items))
	for _, o := range items {
		out = append(out, FromOrder(o))
	}
	return out
}
