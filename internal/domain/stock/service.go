package stock

import (
	"context"
	"fmt"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/tx"
	"mecanix/internal/domain"
	"mecanix/pkg/logger"
)

// Movement date window: far-backdated or future-dated entries are almost
// always input mistakes.
const (
	maxMovementAge    = 365 * 24 * time.Hour
	maxMovementFuture = 24 * time.Hour
)

// MovementOptions carries the optional fields of a ledger entry.
type MovementOptions struct {
	Reason string
	Notes  string
	Date   time.Time
}

// Service is the stock ledger. Every balance change goes through
// ApplyMovement; nothing else may assign CurrentStock.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// RegisterItem creates a stock item after the registration-time guards
// (SKU format, price margin, SKU uniqueness).
func (s *Service) RegisterItem(ctx context.Context, item *Item) error {
	if err := item.Validate(ctx); err != nil {
		return err
	}

	exists, err := s.repo.ExistsBySKU(ctx, item.SKU)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if exists {
		return apperror.NewDuplicate("stock item", "sku", item.SKU)
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return fmt.Errorf("create stock item: %w", err)
	}

	logger.Info(ctx, "stock item registered", "id", item.ID, "sku", item.SKU)
	return nil
}

// UpdateItem modifies item master data. The balance is read-only here:
// whatever the caller sent, the stored CurrentStock wins.
func (s *Service) UpdateItem(ctx context.Context, item *Item) error {
	current, err := s.repo.GetItem(ctx, item.ID)
	if err != nil {
		return err
	}
	item.CurrentStock = current.CurrentStock

	if err := item.Validate(ctx); err != nil {
		return err
	}

	if item.SKU != current.SKU {
		exists, err := s.repo.ExistsBySKU(ctx, item.SKU)
		if err != nil {
			return fmt.Errorf("check sku: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("stock item", "sku", item.SKU)
		}
	}

	return s.repo.UpdateItem(ctx, item)
}

// MarkItemDeleted soft-deletes an item. The ledger history stays intact;
// the item just drops out of default listings.
func (s *Service) MarkItemDeleted(ctx context.Context, itemID id.ID) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	item.MarkDeleted()
	item.Touch()

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return err
	}

	logger.Info(ctx, "stock item marked deleted", "id", item.ID, "sku", item.SKU)
	return nil
}

// RestoreItem clears the deletion mark on a soft-deleted item.
func (s *Service) RestoreItem(ctx context.Context, itemID id.ID) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	item.Undelete()
	item.Touch()

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return err
	}

	logger.Info(ctx, "stock item restored", "id", item.ID, "sku", item.SKU)
	return nil
}

// GetItem retrieves a stock item.
func (s *Service) GetItem(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetItem(ctx, itemID)
}

// ListItems retrieves stock items with filtering.
func (s *Service) ListItems(ctx context.Context, filter ListFilter) (domain.ListResult[*Item], error) {
	return s.repo.ListItems(ctx, filter)
}

// Movements returns the ledger for an item.
func (s *Service) Movements(ctx context.Context, itemID id.ID, filter MovementFilter) ([]Movement, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.GetMovements(ctx, itemID, filter)
}

// ApplyMovement appends a ledger entry and updates the live balance as one
// atomic unit. OUT movements that would drive the balance negative are
// rejected with the current and requested quantities.
func (s *Service) ApplyMovement(ctx context.Context, itemID id.ID, mType MovementType, quantity int, opts MovementOptions) (Movement, error) {
	movement := NewMovement(itemID, mType, quantity, opts.Date)
	movement.Reason = opts.Reason
	movement.Notes = opts.Notes

	if err := validateMovement(movement); err != nil {
		return Movement{}, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		newBalance := item.CurrentStock + movement.EffectiveQuantity()
		if newBalance < 0 {
			return apperror.NewInsufficientStock(itemID.String(), int64(quantity), int64(item.CurrentStock))
		}

		return s.repo.CreateMovement(ctx, movement, newBalance)
	})
	if err != nil {
		return Movement{}, err
	}

	logger.Info(ctx, "stock movement applied",
		"stock_item_id", itemID,
		"movement_id", movement.ID,
		"type", string(mType),
		"effective_quantity", movement.EffectiveQuantity(),
	)

	return movement, nil
}

// AmendMovement rewrites an existing ledger entry. The old delta is
// reversed and the new one applied in the same transaction, so the balance
// never drifts from the ledger. The amended entry must not push the
// balance negative either.
func (s *Service) AmendMovement(ctx context.Context, movementID id.ID, mType MovementType, quantity int, opts MovementOptions) (Movement, error) {
	var amended Movement

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetMovement(ctx, movementID)
		if err != nil {
			return err
		}

		amended = existing
		amended.Type = mType
		amended.Quantity = quantity
		amended.Reason = opts.Reason
		amended.Notes = opts.Notes
		if !opts.Date.IsZero() {
			amended.MovementDate = opts.Date
		}

		if err := validateMovement(amended); err != nil {
			return err
		}

		item, err := s.repo.GetItemForUpdate(ctx, existing.StockItemID)
		if err != nil {
			return err
		}

		newBalance := item.CurrentStock - existing.EffectiveQuantity() + amended.EffectiveQuantity()
		if newBalance < 0 {
			return apperror.NewInsufficientStock(item.ID.String(), int64(quantity), int64(item.CurrentStock))
		}

		return s.repo.UpdateMovement(ctx, amended, newBalance)
	})
	if err != nil {
		return Movement{}, err
	}

	logger.Info(ctx, "stock movement amended",
		"movement_id", movementID,
		"type", string(mType),
		"effective_quantity", amended.EffectiveQuantity(),
	)

	return amended, nil
}

func validateMovement(m Movement) error {
	if !m.Type.Valid() {
		return apperror.NewValidation("unknown movement type").
			WithDetail("field", "type").
			WithDetail("value", string(m.Type))
	}

	switch m.Type {
	case MovementIn, MovementOut:
		if m.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "quantity")
		}
	case MovementAdjustment:
		if m.Quantity == 0 {
			return apperror.NewValidation("adjustment quantity cannot be zero").
				WithDetail("field", "quantity")
		}
	}

	now := time.Now().UTC()
	if m.MovementDate.Before(now.Add(-maxMovementAge)) {
		return apperror.NewValidation("movement date is too far in the past").
			WithDetail("field", "movementDate")
	}
	if m.MovementDate.After(now.Add(maxMovementFuture)) {
		return apperror.NewValidation("movement date is in the future").
			WithDetail("field", "movementDate")
	}

	return nil
}
