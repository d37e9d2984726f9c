package budgets

import (
	"context"

	"mecanix/internal/core/id"
	"mecanix/internal/domain"
)

// Repository defines persistence operations for budgets and their items.
type Repository interface {
	// Create inserts a new budget (without items)
	Create(ctx context.Context, budget *Budget) error

	// GetByID retrieves a budget row by ID (items not loaded)
	GetByID(ctx context.Context, budgetID id.ID) (*Budget, error)

	// GetByOrderID retrieves the budget owned by an order.
	// Returns NOT_FOUND when the order has no budget yet.
	GetByOrderID(ctx context.Context, orderID id.ID) (*Budget, error)

	// Update modifies a budget row (with optimistic locking)
	Update(ctx context.Context, budget *Budget) error

	// GetItems retrieves the line items for a budget
	GetItems(ctx context.Context, budgetID id.ID) ([]Item, error)

	// SaveItems replaces the line items for a budget
	SaveItems(ctx context.Context, budgetID id.ID, items []Item) error

	// List retrieves budgets with filtering
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Budget], error)
}

// ListFilter narrows budget listings.
type ListFilter struct {
	domain.ListFilter

	ClientID *id.ID
	Status   *Status
}
