package orders

import (
	"context"
	"fmt"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/reqctx"
	"mecanix/internal/core/tx"
	"mecanix/internal/domain"
	"mecanix/internal/events"
	"mecanix/pkg/logger"
)

// ChangeStatusOptions carries the optional extras a transition may record.
type ChangeStatusOptions struct {
	// Reason is stored as the cancellation reason when the target is
	// CANCELLED, ignored otherwise.
	Reason string
	// DeliveryDate overrides the delivery timestamp when the target is
	// DELIVERED. Defaults to now.
	DeliveryDate *time.Time
}

// Service provides order intake and role-gated status changes.
type Service struct {
	repo      Repository
	txManager tx.Manager
	bus       *events.Bus
	gate      *RoleGate
}

// NewService creates a new order service.
func NewService(repo Repository, txManager tx.Manager, bus *events.Bus, gate *RoleGate) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		bus:       bus,
		gate:      gate,
	}
}

// Intake registers a new repair order in REQUESTED.
func (s *Service) Intake(ctx context.Context, clientID, vehicleID id.ID) (*Order, error) {
	order := NewOrder(clientID, vehicleID)
	if err := order.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", order.ID,
		"client_id", order.ClientID,
		"vehicle_id", order.VehicleID,
	)
	return order, nil
}

// Get returns the order by id.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}

// ChangeStatus moves the order to target. The acting role (from context)
// is checked against the role gate first, then the transition table, so
// "forbidden for this role" and "impossible from this status" surface as
// different errors. The event goes out only after the change is committed.
func (s *Service) ChangeStatus(ctx context.Context, orderID id.ID, target Status, opts ChangeStatusOptions) (*Order, error) {
	role := reqctx.GetRole(ctx)

	var (
		order *Order
		from  Status
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = order.Status

		if !s.gate.CanTransition(role, from, target) {
			return apperror.NewUnauthorizedOperation(string(role),
				fmt.Sprintf("order transition %s -> %s", from, target))
		}
		if err := Machine.ValidateTransition(from, target); err != nil {
			return err
		}

		order.Status = target
		switch target {
		case StatusCancelled:
			order.CancellationReason = opts.Reason
		case StatusDelivered:
			delivered := time.Now().UTC()
			if opts.DeliveryDate != nil {
				delivered = *opts.DeliveryDate
			}
			order.DeliveryDate = &delivered
		}

		if err := order.Validate(ctx); err != nil {
			return err
		}
		order.Touch()
		return s.repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.New(events.TypeOrderStatusChanged, order.ID, map[string]any{
		"from":      string(from),
		"to":        string(target),
		"client_id": order.ClientID.String(),
	}))

	logger.Info(ctx, "order status changed",
		"order_id", order.ID,
		"from", from,
		"to", target,
		"role", role,
	)
	return order, nil
}

// AllowBudgetEditing permits budget item changes only while the order sits
// in diagnosis.
func (s *Service) AllowBudgetEditing(ctx context.Context, orderID id.ID) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusInDiagnosis {
		return apperror.NewConflict("budget items can only change while the order is in diagnosis").
			WithDetail("order_id", order.ID.String()).
			WithDetail("order_status", string(order.Status))
	}
	return nil
}
