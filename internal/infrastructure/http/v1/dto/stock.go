package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"mecanix/internal/core/types"
	"mecanix/internal/domain/stock"
)

// RegisterStockItemRequest registers a new stock item. Items start with a
// zero balance; stock arrives through IN movements.
type RegisterStockItemRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	MinStockLevel int    `json:"minStockLevel" binding:"gte=0"`
	// Prices are in minor currency units (cents).
	UnitCost      int64 `json:"unitCost" binding:"gte=0"`
	UnitSalePrice int64 `json:"unitSalePrice" binding:"gte=0"`
	// MarkupPercent derives the sale price from cost when unitSalePrice is
	// omitted, e.g. 25 means cost + 25%.
	MarkupPercent float64 `json:"markupPercent" binding:"gte=0"`
}

// ToItem converts the request into a domain item.
func (r RegisterStockItemRequest) ToItem() *stock.Item {
	sale := types.MinorUnits(r.UnitSalePrice)
	if sale.IsZero() && r.MarkupPercent > 0 {
		markup := decimal.NewFromFloat(r.MarkupPercent).Div(decimal.NewFromInt(100))
		sale = types.ApplyMarkup(types.MinorUnits(r.UnitCost), markup)
	}

	item := stock.NewItem(r.SKU, r.Name, types.MinorUnits(r.UnitCost), sale)
	item.MinStockLevel = r.MinStockLevel
	return item
}

// UpdateStockItemRequest updates item master data. The balance is not
// editable here; it only moves through the ledger.
type UpdateStockItemRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	MinStockLevel int    `json:"minStockLevel" binding:"gte=0"`
	UnitCost      int64  `json:"unitCost" binding:"gte=0"`
	UnitSalePrice int64  `json:"unitSalePrice" binding:"gte=0"`
	Version       int    `json:"version" binding:"required,gt=0"`
}

// MovementRequest appends a ledger entry for an item.
type MovementRequest struct {
	Type     string     `json:"type" binding:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity int        `json:"quantity" binding:"required"`
	Reason   string     `json:"reason,omitempty"`
	Notes    string     `json:"notes,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

// Options converts the request extras into movement options.
func (r MovementRequest) Options() stock.MovementOptions {
	opts := stock.MovementOptions{Reason: r.Reason, Notes: r.Notes}
	if r.Date != nil {
		opts.Date = *r.Date
	}
	return opts
}

// StockItemResponse represents a stock item in API responses.
type StockItemResponse struct {
	ID            string    `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	CurrentStock  int       `json:"currentStock"`
	MinStockLevel int       `json:"minStockLevel"`
	UnitCost      int64     `json:"unitCost"`
	UnitSalePrice int64     `json:"unitSalePrice"`
	MarginPercent string    `json:"marginPercent"`
	BelowMinimum  bool      `json:"belowMinimum"`
	DeletionMark  bool      `json:"deletionMark"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromStockItem converts an item to its response DTO.
func FromStockItem(item *stock.Item) StockItemResponse {
	return StockItemResponse{
		ID:            item.ID.String(),
		SKU:           item.SKU,
		Name:          item.Name,
		CurrentStock:  item.CurrentStock,
		MinStockLevel: item.MinStockLevel,
		UnitCost:      item.UnitCost.Int64(),
		UnitSalePrice: item.UnitSalePrice.Int64(),
		MarginPercent: item.MarginPercent(),
		BelowMinimum:  item.IsBelowMinimum(),
		DeletionMark:  item.DeletionMark,
		Version:       item.Version,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

// FromStockItems converts a slice of items.
func FromStockItems(items []*stock.Item) []StockItemResponse {
	out := make([]StockItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromStockItem(item))
	}
	return out
}

// MovementResponse represents a ledger entry in API responses.
type MovementResponse struct {
	ID                string    `json:"id"`
	StockItemID       string    `json:"stockItemId"`
	Type              string    `json:"type"`
	Quantity          int       `json:"quantity"`
	EffectiveQuantity int       `json:"effectiveQuantity"`
	MovementDate      time.Time `json:"movementDate"`
	Reason            string    `json:"reason,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// FromMovement converts a movement to its response DTO.
func FromMovement(m stock.Movement) MovementResponse {
	return MovementResponse{
		ID:                m.ID.String(),
		StockItemID:       m.StockItemID.String(),
		Type:              string(m.Type),
		Quantity:          m.Quantity,
		EffectiveQuantity: m.EffectiveQuantity(),
		MovementDate:      m.MovementDate,
		Reason:            m.Reason,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
	}
}

// FromMovements converts a slice of movements.
func FromMovements(items []stock.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(items))
	for _, m := range items {
		out = append(out, FromMovement(m))
	}
	return out
}
