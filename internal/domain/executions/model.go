package executions

import (
	"context"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/entity"
	"mecanix/internal/core/id"
	"mecanix/internal/core/status"
)

// Status is the repair execution status.
type Status string

const (
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Machine holds the allowed execution transitions. COMPLETED is terminal.
var Machine = status.NewMachine(map[Status][]Status{
	StatusAssigned:   {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
})

// Execution is the repair work record for an order, one per order.
type Execution struct {
	entity.Base
	OrderID     id.ID      `db:"order_id" json:"orderId"`
	MechanicID  *id.ID     `db:"mechanic_id" json:"mechanicId,omitempty"`
	Status      Status     `db:"status" json:"status"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Notes       string     `db:"notes" json:"notes,omitempty"`
}

// NewExecution creates an execution record in ASSIGNED, without a mechanic
// yet.
func NewExecution(orderID id.ID) *Execution {
	return &Execution{
		Base:    entity.NewBase(),
		OrderID: orderID,
		Status:  StatusAssigned,
	}
}

func (e *Execution) Validate(_ context.Context) error {
	if id.IsNil(e.OrderID) {
		return apperror.NewValidation("order id is required")
	}
	if e.CompletedAt != nil && e.StartedAt != nil && e.CompletedAt.Before(*e.StartedAt) {
		return apperror.NewValidation("completion cannot precede the start")
	}
	return nil
}

// HasMechanic reports whether a mechanic has been assigned. Work cannot
// start or complete without one; that guard is separate from the
// transition table.
func (e *Execution) HasMechanic() bool {
	return e.MechanicID != nil && !id.IsNil(*e.MechanicID)
}

// Done reports whether the execution reached its terminal status. A
// completed execution is immutable.
func (e *Execution) Done() bool {
	return e.Status == StatusCompleted
}
