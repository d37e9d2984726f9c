package stock

import (
	"time"

	"mecanix/internal/core/id"
)

// MovementType defines the direction of a ledger entry.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Valid reports whether the movement type is known.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

// Movement is one append-only ledger entry. Quantity is stored as entered:
// strictly positive for IN/OUT, signed for ADJUSTMENT. Once the balance has
// been applied a movement is immutable except through the explicit update
// path, which reverses and reapplies the delta atomically.
type Movement struct {
	ID           id.ID        `db:"id" json:"id"`
	StockItemID  id.ID        `db:"stock_item_id" json:"stockItemId"`
	Type         MovementType `db:"type" json:"type"`
	Quantity     int          `db:"quantity" json:"quantity"`
	MovementDate time.Time    `db:"movement_date" json:"movementDate"`
	Reason       string       `db:"reason" json:"reason,omitempty"`
	Notes        string       `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// NewMovement creates a ledger entry dated now unless a date is given.
func NewMovement(stockItemID id.ID, mType MovementType, quantity int, date time.Time) Movement {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return Movement{
		ID:           id.New(),
		StockItemID:  stockItemID,
		Type:         mType,
		Quantity:     quantity,
		MovementDate: date,
		CreatedAt:    time.Now().UTC(),
	}
}

// EffectiveQuantity returns the signed delta this movement applies to the
// balance: +q for IN, -q for OUT, +q for ADJUSTMENT (where q itself may be
// negative). Pure on the movement, independent of the live balance.
func (m Movement) EffectiveQuantity() int {
	if m.Type == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}
