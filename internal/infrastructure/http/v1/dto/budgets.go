package dto

import (
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/types"
	"mecanix/internal/domain/budgets"
)

// AddBudgetItemRequest adds a line item to a budget.
type AddBudgetItemRequest struct {
	Type        string `json:"type" binding:"required,oneof=SERVICE STOCK_ITEM"`
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	// UnitPrice is in minor currency units (cents).
	UnitPrice   int64   `json:"unitPrice" binding:"required,gt=0"`
	ServiceID   *string `json:"serviceId,omitempty" binding:"omitempty,uuid"`
	StockItemID *string `json:"stockItemId,omitempty" binding:"omitempty,uuid"`
}

// ToItem converts the request into a domain line item.
func (r AddBudgetItemRequest) ToItem() (budgets.Item, error) {
	item := budgets.Item{
		Type:        budgets.ItemType(r.Type),
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   types.MinorUnits(r.UnitPrice),
	}
	if r.ServiceID != nil {
		serviceID, err := id.Parse(*r.ServiceID)
		if err != nil {
			return item, apperror.NewValidation("invalid serviceId format").WithDetail("field", "serviceId")
		}
		item.ServiceID = &serviceID
	}
	if r.StockItemID != nil {
		stockItemID, err := id.Parse(*r.StockItemID)
		if err != nil {
			return item, apperror.NewValidation("invalid stockItemId format").WithDetail("field", "stockItemId")
		}
		item.StockItemID = &stockItemID
	}
	return item, nil
}

// RejectBudgetRequest declines a budget, optionally with a reason.
type RejectBudgetRequest struct {
	Reason string `json:"reason,omitempty"`
}

// BudgetItemResponse represents a budget line item.
type BudgetItemResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   int64   `json:"unitPrice"`
	TotalPrice  int64   `json:"totalPrice"`
	ServiceID   *string `json:"serviceId,omitempty"`
	StockItemID *string `json:"stockItemId,omitempty"`
}

// BudgetResponse represents a budget in API responses. Status is the
// effective one: EXPIRED shows up here even though it is never stored.
type BudgetResponse struct {
	ID             string               `json:"id"`
	OrderID        string               `json:"orderId"`
	ClientID       string               `json:"clientId"`
	Status         string               `json:"status"`
	TotalAmount    int64                `json:"totalAmount"`
	ValidityDays   int                  `json:"validityDays"`
	GenerationDate time.Time            `json:"generationDate"`
	SentDate       *time.Time           `json:"sentDate,omitempty"`
	ApprovalDate   *time.Time           `json:"approvalDate,omitempty"`
	RejectionDate  *time.Time           `json:"rejectionDate,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	Items          []BudgetItemResponse `json:"items,omitempty"`
	Version        int                  `json:"version"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// FromBudget converts a budget to its response DTO.
func FromBudget(b *budgets.Budget) BudgetResponse {
	items := make([]BudgetItemResponse, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, fromBudgetItem(item))
	}

	return BudgetResponse{
		ID:             b.ID.String(),
		OrderID:        b.OrderID.String(),
		ClientID:       b.ClientID.String(),
		Status:         string(b.EffectiveStatus(time.Now().UTC())),
		TotalAmount:    b.TotalAmount.Int64(),
		ValidityDays:   b.ValidityDays,
		GenerationDate: b.GenerationDate,
		SentDate:       b.SentDate,
		ApprovalDate:   b.ApprovalDate,
		RejectionDate:  b.RejectionDate,
		Notes:          b.Notes,
		Items:          items,
		Version:        b.Version,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// FromBudgets converts a slice of budgets.
func FromBudgets(items []*budgets.Budget) []BudgetResponse {
	out := make([]BudgetResponse, 0, len(items))
	for _, b := range items {
		out = append(out, FromBudget(b))
	}
	return out
}

func fromBudgetItem(item budgets.Item) BudgetItemResponse {
	var serviceID, stockItemID *string
	if item.ServiceID != nil {
		s := item.ServiceID.String()
		serviceID = &s
	}
	if item.StockItemID != nil {
		s := item.StockItemID.String()
		stockItemID = &s
	}

	return BudgetItemResponse{
		ID:          item.ID.String(),
		Type:        string(item.Type),
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice.Int64(),
		TotalPrice:  item.TotalPrice.Int64(),
		ServiceID:   serviceID,
		StockItemID: stockItemID,
	}
}
