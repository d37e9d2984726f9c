// Package stock provides the parts inventory: the StockItem catalog and
// the append-only movement ledger its balance is derived from.
package stock

import (
	"context"
	"regexp"

	"github.com/shopspring/decimal"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/entity"
	"mecanix/internal/core/types"
)

// skuPattern: alphanumeric segments joined by single hyphens, 3-32 chars
// total (checked separately).
var skuPattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

const (
	skuMinLen = 3
	skuMaxLen = 32
)

// Item is a stocked part. CurrentStock is never assigned directly - it only
// changes through movement application, which keeps the ledger and the live
// balance consistent.
type Item struct {
	entity.Base

	SKU           string           `db:"sku" json:"sku"`
	Name          string           `db:"name" json:"name"`
	CurrentStock  int              `db:"current_stock" json:"currentStock"`
	MinStockLevel int              `db:"min_stock_level" json:"minStockLevel"`
	UnitCost      types.MinorUnits `db:"unit_cost" json:"unitCost"`
	UnitSalePrice types.MinorUnits `db:"unit_sale_price" json:"unitSalePrice"`
}

// NewItem creates a stock item with zero balance.
func NewItem(sku, name string, unitCost, unitSalePrice types.MinorUnits) *Item {
	return &Item{
		Base:          entity.NewBase(),
		SKU:           sku,
		Name:          name,
		UnitCost:      unitCost,
		UnitSalePrice: unitSalePrice,
	}
}

// Validate implements entity.Validatable. The SKU format and the price
// margin are registration-time guards; they are not re-checked per movement.
func (i *Item) Validate(ctx context.Context) error {
	if i.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if len(i.SKU) < skuMinLen || len(i.SKU) > skuMaxLen || !skuPattern.MatchString(i.SKU) {
		return apperror.NewInvalidSKU(i.SKU)
	}

	if i.UnitCost.IsNegative() || i.UnitSalePrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").
			WithDetail("field", "unitCost")
	}

	if i.UnitSalePrice < i.UnitCost {
		return apperror.NewInvalidPriceMargin(i.UnitCost.Int64(), i.UnitSalePrice.Int64())
	}

	if i.MinStockLevel < 0 {
		return apperror.NewValidation("min stock level cannot be negative").
			WithDetail("field", "minStockLevel")
	}

	if i.CurrentStock < 0 {
		return apperror.NewValidation("current stock cannot be negative").
			WithDetail("field", "currentStock")
	}

	return nil
}

// IsBelowMinimum reports whether the balance dropped under the reorder level.
func (i *Item) IsBelowMinimum() bool {
	return i.CurrentStock < i.MinStockLevel
}

// MarginPercent returns the sale margin over cost as a percentage with two
// decimal places, e.g. "25.00" for a 500→625 spread.
func (i *Item) MarginPercent() string {
	return types.Markup(i.UnitCost, i.UnitSalePrice).
		Mul(decimal.NewFromInt(100)).
		StringFixed(2)
}
