package budgets

import (
	"context"
	"fmt"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/tx"
	"mecanix/internal/core/types"
	"mecanix/internal/domain"
	"mecanix/internal/domain/stock"
	"mecanix/internal/events"
	"mecanix/pkg/logger"
)

// OrderPolicy tells the budget service what the owning order currently
// permits. Implemented by the orders service; kept as a local interface so
// the aggregates stay decoupled.
type OrderPolicy interface {
	// AllowBudgetEditing returns nil while the order is in the stage that
	// permits item changes (diagnosis).
	AllowBudgetEditing(ctx context.Context, orderID id.ID) error
}

// StockLedger is the slice of the stock service the approval saga needs.
type StockLedger interface {
	ApplyMovement(ctx context.Context, itemID id.ID, mType stock.MovementType, quantity int, opts stock.MovementOptions) (stock.Movement, error)
}

// Service provides budget operations: item editing with total recompute,
// send/approve/reject, and the approval-time stock consumption.
type Service struct {
	repo        Repository
	orderPolicy OrderPolicy
	ledger      StockLedger
	txManager   tx.Manager
	bus         *events.Bus
}

// NewService creates a new budget service.
func NewService(repo Repository, orderPolicy OrderPolicy, ledger StockLedger, txManager tx.Manager, bus *events.Bus) *Service {
	return &Service{
		repo:        repo,
		orderPolicy: orderPolicy,
		ledger:      ledger,
		txManager:   txManager,
		bus:         bus,
	}
}

// CreateForOrder spawns the budget for an order. Deterministic: if the
// order already has a budget the existing one is returned, so the event
// handler that reacts to order intake can run more than once safely.
func (s *Service) CreateForOrder(ctx context.Context, orderID, clientID id.ID, validityDays int) (*Budget, error) {
	existing, err := s.repo.GetByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("lookup budget for order: %w", err)
	}

	budget := NewBudget(orderID, clientID, validityDays)
	if err := budget.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, budget); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	logger.Info(ctx, "budget generated", "budget_id", budget.ID, "order_id", orderID)
	return budget, nil
}

// GetWithItems loads a budget with its items and runs the defensive total
// check: a stored total that does not reconcile with the items is surfaced
// as BUDGET_TOTAL_MISMATCH rather than silently returned.
func (s *Service) GetWithItems(ctx context.Context, budgetID id.ID) (*Budget, error) {
	var budget *Budget

	// Budget row and items must come from one snapshot, or the total check
	// can trip on a concurrent item edit.
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		budget, err = s.repo.GetByID(ctx, budgetID)
		if err != nil {
			return err
		}

		items, err := s.repo.GetItems(ctx, budgetID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		if err := budget.CheckTotal(items); err != nil {
			return err
		}

		budget.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// readOnly runs fn in a read-only transaction when the manager supports it.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

// GetByOrderID loads the budget owned by an order, with items.
func (s *Service) GetByOrderID(ctx context.Context, orderID id.ID) (*Budget, error) {
	budget, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.GetWithItems(ctx, budget.ID)
}

// List retrieves budgets with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Budget], error) {
	return s.repo.List(ctx, filter)
}

// AddItem appends a line item and immediately recomputes and persists the
// total. Item changes are permitted only while the owning order is in
// diagnosis and the budget is still GENERATED.
func (s *Service) AddItem(ctx context.Context, budgetID id.ID, item Item) (*Budget, error) {
	item.BudgetID = budgetID
	item.TotalPrice = item.UnitPrice.MulInt(item.Quantity)
	if id.IsNil(item.ID) {
		item.ID = id.New()
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	return s.mutateItems(ctx, budgetID, func(items []Item) ([]Item, error) {
		return append(items, item), nil
	})
}

// RemoveItem deletes a line item and recomputes the total.
func (s *Service) RemoveItem(ctx context.Context, budgetID, itemID id.ID) (*Budget, error) {
	return s.mutateItems(ctx, budgetID, func(items []Item) ([]Item, error) {
		for i, it := range items {
			if it.ID == itemID {
				return append(items[:i:i], items[i+1:]...), nil
			}
		}
		return nil, apperror.NewNotFound("budget item", itemID)
	})
}

func (s *Service) mutateItems(ctx context.Context, budgetID id.ID, mutate func([]Item) ([]Item, error)) (*Budget, error) {
	var budget *Budget

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		budget, err = s.repo.GetByID(ctx, budgetID)
		if err != nil {
			return err
		}

		if !budget.Editable() {
			return apperror.NewConflict("budget items can only change while the budget is GENERATED").
				WithDetail("status", string(budget.Status))
		}

		if err := s.orderPolicy.AllowBudgetEditing(ctx, budget.OrderID); err != nil {
			return err
		}

		items, err := s.repo.GetItems(ctx, budgetID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		items, err = mutate(items)
		if err != nil {
			return err
		}

		budget.RecomputeTotal(items)
		budget.Touch()

		if err := s.repo.SaveItems(ctx, budgetID, items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.repo.Update(ctx, budget)
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// Send marks the budget SENT and records the sent date, then announces it
// so the lifecycle can park the order at awaiting-approval.
func (s *Service) Send(ctx context.Context, budgetID id.ID) (*Budget, error) {
	budget, err := s.GetWithItems(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	if budget.IsExpired(time.Now().UTC()) {
		return nil, apperror.NewBudgetExpired(budget.ID.String())
	}
	if err := Machine.ValidateTransition(budget.Status, StatusSent); err != nil {
		return nil, err
	}
	if len(budget.Items) == 0 {
		return nil, apperror.NewValidation("cannot send an empty budget").
			WithDetail("budget_id", budget.ID.String())
	}

	now := time.Now().UTC()
	budget.Status = StatusSent
	budget.SentDate = &now
	budget.Touch()

	if err := s.repo.Update(ctx, budget); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.New(events.TypeBudgetSent, budget.ID, map[string]any{
		"order_id": budget.OrderID.String(),
	}))

	logger.Info(ctx, "budget sent", "budget_id", budget.ID, "total_amount", budget.TotalAmount.Int64())
	return budget, nil
}

// Approve consumes stock for every STOCK_ITEM line and marks the budget
// APPROVED, all inside one transaction: if any decrement fails nothing is
// committed, so no partial consumption can leak out. The event goes out
// only after the commit.
func (s *Service) Approve(ctx context.Context, budgetID id.ID) (*Budget, error) {
	var budget *Budget

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		budget, err = s.GetWithItems(ctx, budgetID)
		if err != nil {
			return err
		}

		if budget.Status == StatusApproved {
			return apperror.NewBusinessRule(apperror.CodeBudgetAlreadyApproved, "budget is already approved").
				WithDetail("budget_id", budget.ID.String())
		}
		if budget.IsExpired(time.Now().UTC()) {
			return apperror.NewBudgetExpired(budget.ID.String())
		}
		if err := Machine.ValidateTransition(budget.Status, StatusApproved); err != nil {
			return err
		}

		// Stock decrements precede the status flip; the transaction makes
		// them stand or fall together.
		for _, item := range budget.Items {
			if item.Type != ItemTypeStockItem {
				continue
			}
			_, err := s.ledger.ApplyMovement(ctx, *item.StockItemID, stock.MovementOut, item.Quantity, stock.MovementOptions{
				Reason: "budget approval",
				Notes:  fmt.Sprintf("budget %s", budget.ID),
			})
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		budget.Status = StatusApproved
		budget.ApprovalDate = &now
		budget.Touch()

		return s.repo.Update(ctx, budget)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.New(events.TypeBudgetApproved, budget.ID, map[string]any{
		"order_id": budget.OrderID.String(),
	}))

	logger.Info(ctx, "budget approved",
		"budget_id", budget.ID,
		"order_id", budget.OrderID,
		"total_amount", budget.TotalAmount.Int64(),
	)
	return budget, nil
}

// Reject marks the budget REJECTED. Symmetric with Approve: rejecting an
// already-rejected budget is an explicit failure, not a silent no-op.
func (s *Service) Reject(ctx context.Context, budgetID id.ID, reason string) (*Budget, error) {
	budget, err := s.GetWithItems(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	if budget.Status == StatusRejected {
		return nil, apperror.NewBusinessRule(apperror.CodeBudgetAlreadyRejected, "budget is already rejected").
			WithDetail("budget_id", budget.ID.String())
	}
	if budget.IsExpired(time.Now().UTC()) {
		return nil, apperror.NewBudgetExpired(budget.ID.String())
	}
	if err := Machine.ValidateTransition(budget.Status, StatusRejected); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	budget.Status = StatusRejected
	budget.RejectionDate = &now
	if reason != "" {
		budget.Notes = reason
	}
	budget.Touch()

	if err := s.repo.Update(ctx, budget); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.New(events.TypeBudgetRejected, budget.ID, map[string]any{
		"order_id": budget.OrderID.String(),
		"reason":   reason,
	}))

	logger.Info(ctx, "budget rejected", "budget_id", budget.ID, "reason", reason)
	return budget, nil
}

// Regenerate resets a sent, rejected or expired budget back to GENERATED
// with a fresh validity window. Approved budgets cannot be regenerated.
func (s *Service) Regenerate(ctx context.Context, budgetID id.ID) (*Budget, error) {
	budget, err := s.GetWithItems(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	if budget.Status == StatusApproved {
		return nil, apperror.NewConflict("approved budgets cannot be regenerated").
			WithDetail("budget_id", budget.ID.String())
	}

	budget.Status = StatusGenerated
	budget.GenerationDate = time.Now().UTC()
	budget.SentDate = nil
	budget.ApprovalDate = nil
	budget.RejectionDate = nil
	budget.Touch()

	if err := s.repo.Update(ctx, budget); err != nil {
		return nil, err
	}

	logger.Info(ctx, "budget regenerated", "budget_id", budget.ID)
	return budget, nil
}

// Total is a convenience for reporting: the recomputed sum over items.
func Total(items []Item) types.MinorUnits {
	var total types.MinorUnits
	for _, item := range items {
		total += item.TotalPrice
	}
	return total
}
