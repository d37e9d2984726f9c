package budgets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/types"
)

func serviceItem(budgetID id.ID, qty int, unitPrice types.MinorUnits) Item {
	svcID := id.New()
	item := NewItem(budgetID, ItemTypeService, "labor", qty, unitPrice)
	item.ServiceID = &svcID
	return item
}

func TestRecomputeTotal(t *testing.T) {
	b := NewBudget(id.New(), id.New(), 30)
	b.TotalAmount = 15000 // declared upfront

	items := []Item{
		serviceItem(b.ID, 1, 10000),
		serviceItem(b.ID, 2, 2500),
	}

	b.RecomputeTotal(items)
	assert.Equal(t, types.MinorUnits(15000), b.TotalAmount)
	require.NoError(t, b.CheckTotal(items))

	// Idempotent: a second recompute does not drift.
	b.RecomputeTotal(items)
	assert.Equal(t, types.MinorUnits(15000), b.TotalAmount)
}

func TestCheckTotal_Mismatch(t *testing.T) {
	b := NewBudget(id.New(), id.New(), 30)
	b.TotalAmount = 9999

	items := []Item{serviceItem(b.ID, 1, 10000)}

	err := b.CheckTotal(items)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBudgetTotalMismatch, appErr.Code)
	assert.Equal(t, int64(9999), appErr.Details["stored"])
	assert.Equal(t, int64(10000), appErr.Details["computed"])
}

func TestItemValidate(t *testing.T) {
	budgetID := id.New()
	svcID := id.New()
	stockID := id.New()

	valid := NewItem(budgetID, ItemTypeStockItem, "brake pads", 2, 1000)
	valid.StockItemID = &stockID
	require.NoError(t, valid.Validate())

	t.Run("service without reference", func(t *testing.T) {
		item := NewItem(budgetID, ItemTypeService, "labor", 1, 1000)
		assert.Error(t, item.Validate())
	})

	t.Run("both references set", func(t *testing.T) {
		item := NewItem(budgetID, ItemTypeService, "labor", 1, 1000)
		item.ServiceID = &svcID
		item.StockItemID = &stockID
		assert.Error(t, item.Validate())
	})

	t.Run("reference not matching type", func(t *testing.T) {
		item := NewItem(budgetID, ItemTypeStockItem, "pads", 1, 1000)
		item.ServiceID = &svcID
		assert.Error(t, item.Validate())
	})

	t.Run("zero quantity", func(t *testing.T) {
		item := NewItem(budgetID, ItemTypeService, "labor", 0, 1000)
		item.ServiceID = &svcID
		assert.Error(t, item.Validate())
	})

	t.Run("total out of sync", func(t *testing.T) {
		item := NewItem(budgetID, ItemTypeService, "labor", 2, 1000)
		item.ServiceID = &svcID
		item.TotalPrice = 1500
		assert.Error(t, item.Validate())
	})
}

func TestIsExpired(t *testing.T) {
	b := NewBudget(id.New(), id.New(), 10)
	b.GenerationDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, b.IsExpired(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.False(t, b.IsExpired(time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)))
	assert.True(t, b.IsExpired(time.Date(2026, 1, 11, 0, 0, 1, 0, time.UTC)))
}

func TestEffectiveStatus(t *testing.T) {
	past := time.Now().UTC().Add(-40 * 24 * time.Hour)

	b := NewBudget(id.New(), id.New(), 30)
	b.GenerationDate = past
	assert.Equal(t, StatusExpired, b.EffectiveStatus(time.Now().UTC()))

	b.Status = StatusSent
	assert.Equal(t, StatusExpired, b.EffectiveStatus(time.Now().UTC()))

	// Terminal statuses are not overridden.
	b.Status = StatusApproved
	assert.Equal(t, StatusApproved, b.EffectiveStatus(time.Now().UTC()))
	b.Status = StatusRejected
	assert.Equal(t, StatusRejected, b.EffectiveStatus(time.Now().UTC()))
}

func TestMachine_Table(t *testing.T) {
	assert.True(t, Machine.IsValidTransition(StatusGenerated, StatusSent))
	assert.True(t, Machine.IsValidTransition(StatusSent, StatusApproved))
	assert.True(t, Machine.IsValidTransition(StatusSent, StatusRejected))

	assert.False(t, Machine.IsValidTransition(StatusGenerated, StatusApproved))
	assert.False(t, Machine.IsValidTransition(StatusApproved, StatusSent))
	assert.True(t, Machine.IsTerminal(StatusApproved))
	assert.True(t, Machine.IsTerminal(StatusRejected))
}
