package orders

import (
	"context"

	"mecanix/internal/core/id"
	"mecanix/internal/domain"
)

// ListFilter narrows order listings.
type ListFilter struct {
	domain.ListFilter
	ClientID *id.ID
	Status   *Status
}

// Repository is the persistence contract for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	Update(ctx context.Context, order *Order) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)
}
