package executions

import (
	"context"

	"mecanix/internal/core/id"
	"mecanix/internal/domain"
)

// ListFilter narrows execution listings.
type ListFilter struct {
	domain.ListFilter
	MechanicID *id.ID
	Status     *Status
}

// Repository is the persistence contract for executions.
type Repository interface {
	Create(ctx context.Context, execution *Execution) error
	GetByID(ctx context.Context, executionID id.ID) (*Execution, error)
	// GetByOrderID returns the execution for the order, NOT_FOUND when the
	// order has none yet.
	GetByOrderID(ctx context.Context, orderID id.ID) (*Execution, error)
	Update(ctx context.Context, execution *Execution) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Execution], error)
}
