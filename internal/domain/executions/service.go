package executions

import (
	"context"
	"time"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/tx"
	"mecanix/internal/domain"
	"mecanix/internal/events"
	"mecanix/pkg/logger"
)

// Service provides the assign/start/complete operations on executions.
type Service struct {
	repo      Repository
	txManager tx.Manager
	bus       *events.Bus
}

// NewService creates a new execution service.
func NewService(repo Repository, txManager tx.Manager, bus *events.Bus) *Service {
	return &Service{repo: repo, txManager: txManager, bus: bus}
}

// CreateForOrder spawns the execution record for an order. Like budget
// creation it is deterministic: one execution per order, repeated calls
// return the existing one.
func (s *Service) CreateForOrder(ctx context.Context, orderID id.ID) (*Execution, error) {
	existing, err := s.repo.GetByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	execution := NewExecution(orderID)
	if err := execution.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, execution); err != nil {
		return nil, err
	}

	logger.Info(ctx, "execution created", "execution_id", execution.ID, "order_id", orderID)
	return execution, nil
}

// Get returns the execution by id.
func (s *Service) Get(ctx context.Context, executionID id.ID) (*Execution, error) {
	return s.repo.GetByID(ctx, executionID)
}

// GetByOrderID returns the execution attached to the order.
func (s *Service) GetByOrderID(ctx context.Context, orderID id.ID) (*Execution, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// List returns executions matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Execution], error) {
	return s.repo.List(ctx, filter)
}

// AssignMechanic sets or replaces the mechanic while the work has not
// started.
func (s *Service) AssignMechanic(ctx context.Context, executionID, mechanicID id.ID) (*Execution, error) {
	if id.IsNil(mechanicID) {
		return nil, apperror.NewValidation("mechanic id is required")
	}
	return s.update(ctx, executionID, func(e *Execution) error {
		if e.Status != StatusAssigned {
			return apperror.NewConflict("mechanic can only change before work starts").
				WithDetail("status", string(e.Status))
		}
		e.MechanicID = &mechanicID
		return nil
	})
}

// Start moves the execution to IN_PROGRESS and stamps the start time.
func (s *Service) Start(ctx context.Context, executionID id.ID) (*Execution, error) {
	return s.update(ctx, executionID, func(e *Execution) error {
		if err := s.guardMechanic(e); err != nil {
			return err
		}
		if err := Machine.ValidateTransition(e.Status, StatusInProgress); err != nil {
			return err
		}
		now := time.Now().UTC()
		e.Status = StatusInProgress
		e.StartedAt = &now
		return nil
	})
}

// Complete finishes the execution and announces it so the lifecycle can
// move the order to FINISHED. A completed execution is immutable.
func (s *Service) Complete(ctx context.Context, executionID id.ID, notes string) (*Execution, error) {
	execution, err := s.update(ctx, executionID, func(e *Execution) error {
		if err := s.guardMechanic(e); err != nil {
			return err
		}
		if err := Machine.ValidateTransition(e.Status, StatusCompleted); err != nil {
			return err
		}
		now := time.Now().UTC()
		e.Status = StatusCompleted
		e.CompletedAt = &now
		if notes != "" {
			e.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.New(events.TypeExecutionCompleted, execution.ID, map[string]any{
		"order_id": execution.OrderID.String(),
	}))

	logger.Info(ctx, "execution completed", "execution_id", execution.ID, "order_id", execution.OrderID)
	return execution, nil
}

// guardMechanic rejects work on an unassigned execution. Distinct from the
// transition table so callers can tell the two failures apart.
func (s *Service) guardMechanic(e *Execution) error {
	if !e.HasMechanic() {
		return apperror.NewBusinessRule(apperror.CodeMechanicNotAssigned,
			"a mechanic must be assigned before work can progress").
			WithDetail("execution_id", e.ID.String())
	}
	return nil
}

func (s *Service) update(ctx context.Context, executionID id.ID, mutate func(*Execution) error) (*Execution, error) {
	var execution *Execution

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		execution, err = s.repo.GetByID(ctx, executionID)
		if err != nil {
			return err
		}
		if execution.Done() {
			return apperror.NewConflict("completed executions are immutable").
				WithDetail("execution_id", execution.ID.String())
		}
		if err := mutate(execution); err != nil {
			return err
		}
		if err := execution.Validate(ctx); err != nil {
			return err
		}
		execution.Touch()
		return s.repo.Update(ctx, execution)
	})
	if err != nil {
		return nil, err
	}
	return execution, nil
}
