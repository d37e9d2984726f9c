package stock

import (
	"context"
	"time"

	"mecanix/internal/core/id"
	"mecanix/internal/domain"
)

// Repository defines persistence operations for stock items and the
// movement ledger. CreateMovement and UpdateMovement must write the
// movement row and the new balance as one atomic unit - a movement with no
// balance update (or vice versa) is an invariant violation.
type Repository interface {
	// Item operations

	// CreateItem inserts a new stock item
	CreateItem(ctx context.Context, item *Item) error

	// GetItem retrieves an item by ID
	GetItem(ctx context.Context, itemID id.ID) (*Item, error)

	// GetItemBySKU retrieves an item by its unique SKU
	GetItemBySKU(ctx context.Context, sku string) (*Item, error)

	// GetItemForUpdate retrieves an item with a row lock, for balance checks
	// that precede a decrement
	GetItemForUpdate(ctx context.Context, itemID id.ID) (*Item, error)

	// UpdateItem modifies an item (with optimistic locking). Callers must not
	// change CurrentStock through this path.
	UpdateItem(ctx context.Context, item *Item) error

	// ExistsBySKU checks SKU uniqueness at registration time
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// ListItems retrieves items with filtering and pagination
	ListItems(ctx context.Context, filter ListFilter) (domain.ListResult[*Item], error)

	// Ledger operations

	// CreateMovement appends a movement and applies newBalance to the item
	// in the same transaction
	CreateMovement(ctx context.Context, movement Movement, newBalance int) error

	// UpdateMovement rewrites a movement and applies newBalance, atomically
	// with the reversal of the old delta
	UpdateMovement(ctx context.Context, movement Movement, newBalance int) error

	// GetMovement retrieves a single ledger entry
	GetMovement(ctx context.Context, movementID id.ID) (Movement, error)

	// GetMovements returns the ledger for an item, oldest first
	GetMovements(ctx context.Context, itemID id.ID, filter MovementFilter) ([]Movement, error)
}

// ListFilter narrows stock item listings.
type ListFilter struct {
	domain.ListFilter

	BelowMinimum bool
}

// MovementFilter narrows ledger queries.
type MovementFilter struct {
	Type     *MovementType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
