// Package budgets provides the repair budget aggregate: the budget, its
// line items, and the consistency rules binding the two.
package budgets

import (
	"context"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/entity"
	"mecanix/internal/core/id"
	"mecanix/internal/core/status"
	"mecanix/internal/core/types"
)

// Status is the stored budget status. EXPIRED is deliberately absent: it
// is a derived property evaluated against the validity window at read time.
type Status string

const (
	StatusGenerated Status = "GENERATED"
	StatusSent      Status = "SENT"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"

	// StatusExpired is never stored; it is reported by EffectiveStatus when
	// the validity window has elapsed.
	StatusExpired Status = "EXPIRED"
)

// Machine is the budget status transition table. APPROVED and REJECTED are
// terminal; re-generation is a separate operation, not a table entry.
var Machine = status.NewMachine(map[Status][]Status{
	StatusGenerated: {StatusSent},
	StatusSent:      {StatusApproved, StatusRejected},
	StatusApproved:  {},
	StatusRejected:  {},
})

// ItemType discriminates budget line items.
type ItemType string

const (
	ItemTypeService   ItemType = "SERVICE"
	ItemTypeStockItem ItemType = "STOCK_ITEM"
)

// Item is one budget line. Exactly one of ServiceID/StockItemID is set,
// matching Type; TotalPrice is always UnitPrice × Quantity.
type Item struct {
	ID          id.ID            `db:"id" json:"id"`
	BudgetID    id.ID            `db:"budget_id" json:"budgetId"`
	Type        ItemType         `db:"type" json:"type"`
	Description string           `db:"description" json:"description"`
	Quantity    int              `db:"quantity" json:"quantity"`
	UnitPrice   types.MinorUnits `db:"unit_price" json:"unitPrice"`
	TotalPrice  types.MinorUnits `db:"total_price" json:"totalPrice"`
	ServiceID   *id.ID           `db:"service_id" json:"serviceId,omitempty"`
	StockItemID *id.ID           `db:"stock_item_id" json:"stockItemId,omitempty"`
}

// NewItem creates a budget line with its total computed.
func NewItem(budgetID id.ID, itemType ItemType, description string, quantity int, unitPrice types.MinorUnits) Item {
	return Item{
		ID:          id.New(),
		BudgetID:    budgetID,
		Type:        itemType,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  unitPrice.MulInt(quantity),
	}
}

// Validate checks the line item invariants.
func (i *Item) Validate() error {
	switch i.Type {
	case ItemTypeService:
		if i.ServiceID == nil || i.StockItemID != nil {
			return apperror.NewValidation("service item must reference exactly one service").
				WithDetail("field", "serviceId")
		}
	case ItemTypeStockItem:
		if i.StockItemID == nil || i.ServiceID != nil {
			return apperror.NewValidation("stock item line must reference exactly one stock item").
				WithDetail("field", "stockItemId")
		}
	default:
		return apperror.NewValidation("unknown budget item type").
			WithDetail("field", "type").
			WithDetail("value", string(i.Type))
	}

	if i.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	if i.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}

	if i.TotalPrice != i.UnitPrice.MulInt(i.Quantity) {
		return apperror.NewValidation("total price must equal unit price times quantity").
			WithDetail("field", "totalPrice")
	}

	return nil
}

// Budget is the repair estimate for an order. One budget per order; the
// declared TotalAmount must reconcile with the line items at every
// recompute.
type Budget struct {
	entity.Base

	OrderID        id.ID            `db:"order_id" json:"orderId"`
	ClientID       id.ID            `db:"client_id" json:"clientId"`
	Status         Status           `db:"status" json:"status"`
	TotalAmount    types.MinorUnits `db:"total_amount" json:"totalAmount"`
	ValidityDays   int              `db:"validity_days" json:"validityDays"`
	GenerationDate time.Time        `db:"generation_date" json:"generationDate"`
	SentDate       *time.Time       `db:"sent_date" json:"sentDate,omitempty"`
	ApprovalDate   *time.Time       `db:"approval_date" json:"approvalDate,omitempty"`
	RejectionDate  *time.Time       `db:"rejection_date" json:"rejectionDate,omitempty"`
	Notes          string           `db:"notes" json:"notes,omitempty"`

	// Items are loaded separately from the budget row.
	Items []Item `db:"-" json:"items"`
}

// DefaultValidityDays is the validity window when the caller does not set one.
const DefaultValidityDays = 30

// NewBudget creates a GENERATED budget with zero total.
func NewBudget(orderID, clientID id.ID, validityDays int) *Budget {
	if validityDays <= 0 {
		validityDays = DefaultValidityDays
	}
	return &Budget{
		Base:           entity.NewBase(),
		OrderID:        orderID,
		ClientID:       clientID,
		Status:         StatusGenerated,
		ValidityDays:   validityDays,
		GenerationDate: time.Now().UTC(),
	}
}

// Validate implements entity.Validatable.
func (b *Budget) Validate(ctx context.Context) error {
	if id.IsNil(b.OrderID) {
		return apperror.NewValidation("order is required").
			WithDetail("field", "orderId")
	}
	if id.IsNil(b.ClientID) {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientId")
	}
	if b.ValidityDays <= 0 {
		return apperror.NewValidation("validity period must be positive").
			WithDetail("field", "validityDays")
	}
	for _, item := range b.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeTotal sets TotalAmount to the sum of the item totals. Pure over
// the given items and idempotent: recomputing twice yields the same total.
func (b *Budget) RecomputeTotal(items []Item) {
	var total types.MinorUnits
	for _, item := range items {
		total += item.TotalPrice
	}
	b.TotalAmount = total
	b.Items = items
}

// CheckTotal verifies that the stored total matches the recomputed one.
// Divergence outside the recompute path is a consistency fault.
func (b *Budget) CheckTotal(items []Item) error {
	var computed types.MinorUnits
	for _, item := range items {
		computed += item.TotalPrice
	}
	if computed != b.TotalAmount {
		return apperror.NewBudgetTotalMismatch(b.ID.String(), b.TotalAmount.Int64(), computed.Int64())
	}
	return nil
}

// IsExpired reports whether now is past generationDate + validityPeriod.
// Derived regardless of the stored status.
func (b *Budget) IsExpired(now time.Time) bool {
	deadline := b.GenerationDate.Add(time.Duration(b.ValidityDays) * 24 * time.Hour)
	return now.After(deadline)
}

// EffectiveStatus is the status as seen by readers: EXPIRED overrides the
// stored value once the validity window has elapsed, regardless of what is
// stored.
func (b *Budget) EffectiveStatus(now time.Time) Status {
	if b.Status != StatusApproved && b.Status != StatusRejected && b.IsExpired(now) {
		return StatusExpired
	}
	return b.Status
}

// Editable reports whether line items may still change.
func (b *Budget) Editable() bool {
	return b.Status == StatusGenerated
}
