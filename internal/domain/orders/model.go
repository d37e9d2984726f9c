package orders

import (
	"context"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/entity"
	"mecanix/internal/core/id"
	"mecanix/internal/core/status"
)

// Status is the repair order lifecycle status.
type Status string

const (
	StatusRequested        Status = "REQUESTED"
	StatusReceived         Status = "RECEIVED"
	StatusInDiagnosis      Status = "IN_DIAGNOSIS"
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"
	StatusInRepair         Status = "IN_REPAIR"
	StatusFinished         Status = "FINISHED"
	StatusDelivered        Status = "DELIVERED"
	StatusCancelled        Status = "CANCELLED"
)

// Machine holds the allowed order transitions. Statuses move forward only;
// CANCELLED is reachable from every non-terminal status and, like DELIVERED,
// has no way out.
var Machine = status.NewMachine(map[Status][]Status{
	StatusRequested:        {StatusReceived, StatusCancelled},
	StatusReceived:         {StatusInDiagnosis, StatusCancelled},
	StatusInDiagnosis:      {StatusAwaitingApproval, StatusCancelled},
	StatusAwaitingApproval: {StatusInRepair, StatusCancelled},
	StatusInRepair:         {StatusFinished, StatusCancelled},
	StatusFinished:         {StatusDelivered, StatusCancelled},
	StatusDelivered:        {},
	StatusCancelled:        {},
})

// Order is a vehicle repair order.
type Order struct {
	entity.Base
	ClientID           id.ID      `db:"client_id" json:"clientId"`
	VehicleID          id.ID      `db:"vehicle_id" json:"vehicleId"`
	Status             Status     `db:"status" json:"status"`
	RequestedAt        time.Time  `db:"requested_at" json:"requestedAt"`
	DeliveryDate       *time.Time `db:"delivery_date" json:"deliveryDate,omitempty"`
	CancellationReason string     `db:"cancellation_reason" json:"cancellationReason,omitempty"`
}

// NewOrder creates an order at intake, in REQUESTED.
func NewOrder(clientID, vehicleID id.ID) *Order {
	return &Order{
		Base:        entity.NewBase(),
		ClientID:    clientID,
		VehicleID:   vehicleID,
		Status:      StatusRequested,
		RequestedAt: time.Now().UTC(),
	}
}

func (o *Order) Validate(_ context.Context) error {
	if id.IsNil(o.ClientID) {
		return apperror.NewValidation("client id is required")
	}
	if id.IsNil(o.VehicleID) {
		return apperror.NewValidation("vehicle id is required")
	}
	if o.DeliveryDate != nil && o.DeliveryDate.Before(o.RequestedAt) {
		return apperror.NewValidation("delivery date cannot precede the request date").
			WithDetail("requested_at", o.RequestedAt.Format(time.RFC3339)).
			WithDetail("delivery_date", o.DeliveryDate.Format(time.RFC3339))
	}
	return nil
}

// Active reports whether the order is still progressing through the
// lifecycle.
func (o *Order) Active() bool {
	return !Machine.IsTerminal(o.Status)
}
