// Package lifecycle couples the aggregates through the event bus: order
// progress spawns budgets and executions, budget outcomes move the order,
// and a finished execution closes the repair. Handlers run with the system
// actor so the automated hops pass the role gate.
package lifecycle

import (
	"context"
	"fmt"

	"mecanix/internal/core/id"
	"mecanix/internal/core/reqctx"
	"mecanix/internal/domain/budgets"
	"mecanix/internal/domain/executions"
	"mecanix/internal/domain/orders"
	"mecanix/internal/events"
	"mecanix/pkg/logger"
)

// OrderService is the slice of the order service the orchestrator drives.
type OrderService interface {
	ChangeStatus(ctx context.Context, orderID id.ID, target orders.Status, opts orders.ChangeStatusOptions) (*orders.Order, error)
}

// BudgetService spawns budgets for diagnosable orders.
type BudgetService interface {
	CreateForOrder(ctx context.Context, orderID, clientID id.ID, validityDays int) (*budgets.Budget, error)
}

// ExecutionService spawns execution records once repair is authorized.
type ExecutionService interface {
	CreateForOrder(ctx context.Context, orderID id.ID) (*executions.Execution, error)
}

// Orchestrator subscribes the lifecycle handlers on the bus.
type Orchestrator struct {
	orders     OrderService
	budgets    BudgetService
	executions ExecutionService
}

// NewOrchestrator wires the handlers onto the bus and returns the
// orchestrator. Call once at startup.
func NewOrchestrator(bus *events.Bus, orderSvc OrderService, budgetSvc BudgetService, executionSvc ExecutionService) *Orchestrator {
	o := &Orchestrator{
		orders:     orderSvc,
		budgets:    budgetSvc,
		executions: executionSvc,
	}

	bus.Subscribe(events.TypeOrderStatusChanged, events.HandlerFunc(o.onOrderStatusChanged))
	bus.Subscribe(events.TypeBudgetSent, events.HandlerFunc(o.onBudgetSent))
	bus.Subscribe(events.TypeBudgetApproved, events.HandlerFunc(o.onBudgetApproved))
	bus.Subscribe(events.TypeExecutionCompleted, events.HandlerFunc(o.onExecutionCompleted))

	return o
}

// onOrderStatusChanged spawns the budget once the order enters diagnosis.
// Budget creation is deterministic per order, so redelivery is harmless.
func (o *Orchestrator) onOrderStatusChanged(ctx context.Context, event events.Event) error {
	if event.String("to") != string(orders.StatusInDiagnosis) {
		return nil
	}

	clientID, err := id.Parse(event.String("client_id"))
	if err != nil {
		return fmt.Errorf("parse client id: %w", err)
	}

	budget, err := o.budgets.CreateForOrder(asSystem(ctx), event.AggregateID, clientID, budgets.DefaultValidityDays)
	if err != nil {
		return fmt.Errorf("spawn budget for order %s: %w", event.AggregateID, err)
	}

	logger.Info(ctx, "budget spawned for diagnosis", "order_id", event.AggregateID, "budget_id", budget.ID)
	return nil
}

// onBudgetSent parks the order at awaiting-approval.
func (o *Orchestrator) onBudgetSent(ctx context.Context, event events.Event) error {
	orderID, err := orderIDFrom(event)
	if err != nil {
		return err
	}

	_, err = o.orders.ChangeStatus(asSystem(ctx), orderID, orders.StatusAwaitingApproval, orders.ChangeStatusOptions{})
	if err != nil {
		return fmt.Errorf("move order %s to awaiting approval: %w", orderID, err)
	}
	return nil
}

// onBudgetApproved authorizes the repair: the order moves to IN_REPAIR and
// the execution record comes into existence.
func (o *Orchestrator) onBudgetApproved(ctx context.Context, event events.Event) error {
	orderID, err := orderIDFrom(event)
	if err != nil {
		return err
	}

	sysCtx := asSystem(ctx)
	if _, err := o.orders.ChangeStatus(sysCtx, orderID, orders.StatusInRepair, orders.ChangeStatusOptions{}); err != nil {
		return fmt.Errorf("move order %s to in repair: %w", orderID, err)
	}
	if _, err := o.executions.CreateForOrder(sysCtx, orderID); err != nil {
		return fmt.Errorf("spawn execution for order %s: %w", orderID, err)
	}
	return nil
}

// onExecutionCompleted closes the repair stage.
func (o *Orchestrator) onExecutionCompleted(ctx context.Context, event events.Event) error {
	orderID, err := orderIDFrom(event)
	if err != nil {
		return err
	}

	_, err = o.orders.ChangeStatus(asSystem(ctx), orderID, orders.StatusFinished, orders.ChangeStatusOptions{})
	if err != nil {
		return fmt.Errorf("finish order %s: %w", orderID, err)
	}
	return nil
}

func orderIDFrom(event events.Event) (id.ID, error) {
	orderID, err := id.Parse(event.String("order_id"))
	if err != nil {
		return id.Nil(), fmt.Errorf("event %s carries no order id: %w", event.EventType, err)
	}
	return orderID, nil
}

// asSystem replaces the acting user with the system actor while keeping
// the rest of the request context (trace, deadline).
func asSystem(ctx context.Context) context.Context {
	return reqctx.WithActor(ctx, reqctx.SystemActor())
}
