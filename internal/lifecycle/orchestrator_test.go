package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/core/reqctx"
	"mecanix/internal/domain"
	"mecanix/internal/domain/budgets"
	"mecanix/internal/domain/executions"
	"mecanix/internal/domain/orders"
	"mecanix/internal/domain/stock"
	"mecanix/internal/events"
)

type txPassthrough struct{}

func (txPassthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type orderRepo struct{ m map[id.ID]*orders.Order }

func (r *orderRepo) Create(_ context.Context, o *orders.Order) error {
	cp := *o
	r.m[o.ID] = &cp
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, orderID id.ID) (*orders.Order, error) {
	o, ok := r.m[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID)
	}
	cp := *o
	return &cp, nil
}

func (r *orderRepo) Update(_ context.Context, o *orders.Order) error {
	cp := *o
	r.m[o.ID] = &cp
	return nil
}

func (r *orderRepo) List(_ context.Context, _ orders.ListFilter) (domain.ListResult[*orders.Order], error) {
	return domain.ListResult[*orders.Order]{}, nil
}

type budgetRepo struct {
	m     map[id.ID]*budgets.Budget
	items map[id.ID][]budgets.Item
}

func (r *budgetRepo) Create(_ context.Context, b *budgets.Budget) error {
	cp := *b
	r.m[b.ID] = &cp
	return nil
}

func (r *budgetRepo) GetByID(_ context.Context, budgetID id.ID) (*budgets.Budget, error) {
	b, ok := r.m[budgetID]
	if !ok {
		return nil, apperror.NewNotFound("budget", budgetID)
	}
	cp := *b
	return &cp, nil
}

func (r *budgetRepo) GetByOrderID(_ context.Context, orderID id.ID) (*budgets.Budget, error) {
	for _, b := range r.m {
		if b.OrderID == orderID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("budget", orderID)
}

func (r *budgetRepo) Update(_ context.Context, b *budgets.Budget) error {
	cp := *b
	r.m[b.ID] = &cp
	return nil
}

func (r *budgetRepo) GetItems(_ context.Context, budgetID id.ID) ([]budgets.Item, error) {
	return append([]budgets.Item(nil), r.items[budgetID]...), nil
}

func (r *budgetRepo) SaveItems(_ context.Context, budgetID id.ID, items []budgets.Item) error {
	r.items[budgetID] = append([]budgets.Item(nil), items...)
	return nil
}

func (r *budgetRepo) List(_ context.Context, _ budgets.ListFilter) (domain.ListResult[*budgets.Budget], error) {
	return domain.ListResult[*budgets.Budget]{}, nil
}

type executionRepo struct{ m map[id.ID]*executions.Execution }

func (r *executionRepo) Create(_ context.Context, e *executions.Execution) error {
	cp := *e
	r.m[e.ID] = &cp
	return nil
}

func (r *executionRepo) GetByID(_ context.Context, executionID id.ID) (*executions.Execution, error) {
	e, ok := r.m[executionID]
	if !ok {
		return nil, apperror.NewNotFound("execution", executionID)
	}
	cp := *e
	return &cp, nil
}

func (r *executionRepo) GetByOrderID(_ context.Context, orderID id.ID) (*executions.Execution, error) {
	for _, e := range r.m {
		if e.OrderID == orderID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("execution", orderID)
}

func (r *executionRepo) Update(_ context.Context, e *executions.Execution) error {
	cp := *e
	r.m[e.ID] = &cp
	return nil
}

func (r *executionRepo) List(_ context.Context, _ executions.ListFilter) (domain.ListResult[*executions.Execution], error) {
	return domain.ListResult[*executions.Execution]{}, nil
}

type ledgerFake struct{ balances map[id.ID]int }

func (l *ledgerFake) ApplyMovement(_ context.Context, itemID id.ID, mType stock.MovementType, quantity int, opts stock.MovementOptions) (stock.Movement, error) {
	m := stock.NewMovement(itemID, mType, quantity, opts.Date)
	balance := l.balances[itemID] + m.EffectiveQuantity()
	if balance < 0 {
		return stock.Movement{}, apperror.NewInsufficientStock(itemID.String(), int64(quantity), int64(l.balances[itemID]))
	}
	l.balances[itemID] = balance
	return m, nil
}

type world struct {
	orderSvc     *orders.Service
	budgetSvc    *budgets.Service
	executionSvc *executions.Service
	ordersRepo   *orderRepo
	execRepo     *executionRepo
	ledger       *ledgerFake
}

func newWorld() *world {
	bus := events.NewBus()
	ordersRepo := &orderRepo{m: make(map[id.ID]*orders.Order)}
	budgetsRepo := &budgetRepo{m: make(map[id.ID]*budgets.Budget), items: make(map[id.ID][]budgets.Item)}
	execRepo := &executionRepo{m: make(map[id.ID]*executions.Execution)}
	ledger := &ledgerFake{balances: make(map[id.ID]int)}

	orderSvc := orders.NewService(ordersRepo, txPassthrough{}, bus, orders.NewRoleGate())
	budgetSvc := budgets.NewService(budgetsRepo, orderSvc, ledger, txPassthrough{}, bus)
	executionSvc := executions.NewService(execRepo, txPassthrough{}, bus)

	NewOrchestrator(bus, orderSvc, budgetSvc, executionSvc)

	return &world{
		orderSvc:     orderSvc,
		budgetSvc:    budgetSvc,
		executionSvc: executionSvc,
		ordersRepo:   ordersRepo,
		execRepo:     execRepo,
		ledger:       ledger,
	}
}

func as(role reqctx.Role) context.Context {
	return reqctx.WithActor(context.Background(), &reqctx.Actor{SubjectID: "tester", Role: role})
}

func TestFullLifecycle(t *testing.T) {
	w := newWorld()

	partID := id.New()
	w.ledger.balances[partID] = 10

	order, err := w.orderSvc.Intake(context.Background(), id.New(), id.New())
	require.NoError(t, err)

	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleAttendant), order.ID, orders.StatusReceived, orders.ChangeStatusOptions{})
	require.NoError(t, err)

	// Entering diagnosis spawns the budget.
	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleMechanic), order.ID, orders.StatusInDiagnosis, orders.ChangeStatusOptions{})
	require.NoError(t, err)

	budget, err := w.budgetSvc.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, budgets.StatusGenerated, budget.Status)

	_, err = w.budgetSvc.AddItem(context.Background(), budget.ID, budgets.Item{
		Type:        budgets.ItemTypeStockItem,
		Description: "brake pads",
		Quantity:    4,
		UnitPrice:   1000,
		StockItemID: &partID,
	})
	require.NoError(t, err)

	// Sending the budget parks the order at awaiting approval.
	_, err = w.budgetSvc.Send(context.Background(), budget.ID)
	require.NoError(t, err)
	current, err := w.orderSvc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAwaitingApproval, current.Status)

	// Approval consumes stock, moves the order to repair and spawns the
	// execution.
	_, err = w.budgetSvc.Approve(context.Background(), budget.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, w.ledger.balances[partID])

	current, err = w.orderSvc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusInRepair, current.Status)

	execution, err := w.executionSvc.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, executions.StatusAssigned, execution.Status)

	// Completing the work finishes the order.
	_, err = w.executionSvc.AssignMechanic(context.Background(), execution.ID, id.New())
	require.NoError(t, err)
	_, err = w.executionSvc.Start(context.Background(), execution.ID)
	require.NoError(t, err)
	_, err = w.executionSvc.Complete(context.Background(), execution.ID, "done")
	require.NoError(t, err)

	current, err = w.orderSvc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFinished, current.Status)

	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleAttendant), order.ID, orders.StatusDelivered, orders.ChangeStatusOptions{})
	require.NoError(t, err)
}

func TestApprovalFailureLeavesOrderWaiting(t *testing.T) {
	w := newWorld()

	partID := id.New()
	w.ledger.balances[partID] = 2

	order, err := w.orderSvc.Intake(context.Background(), id.New(), id.New())
	require.NoError(t, err)
	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleAttendant), order.ID, orders.StatusReceived, orders.ChangeStatusOptions{})
	require.NoError(t, err)
	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleMechanic), order.ID, orders.StatusInDiagnosis, orders.ChangeStatusOptions{})
	require.NoError(t, err)

	budget, err := w.budgetSvc.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = w.budgetSvc.AddItem(context.Background(), budget.ID, budgets.Item{
		Type:        budgets.ItemTypeStockItem,
		Description: "pads",
		Quantity:    5,
		UnitPrice:   1000,
		StockItemID: &partID,
	})
	require.NoError(t, err)
	_, err = w.budgetSvc.Send(context.Background(), budget.ID)
	require.NoError(t, err)

	_, err = w.budgetSvc.Approve(context.Background(), budget.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// No event went out, so the order stayed put and no execution exists.
	current, err := w.orderSvc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAwaitingApproval, current.Status)

	_, err = w.executionSvc.GetByOrderID(context.Background(), order.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 2, w.ledger.balances[partID])
}

func TestBudgetEditingBlockedOutsideDiagnosis(t *testing.T) {
	w := newWorld()

	order, err := w.orderSvc.Intake(context.Background(), id.New(), id.New())
	require.NoError(t, err)
	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleAttendant), order.ID, orders.StatusReceived, orders.ChangeStatusOptions{})
	require.NoError(t, err)
	_, err = w.orderSvc.ChangeStatus(as(reqctx.RoleMechanic), order.ID, orders.StatusInDiagnosis, orders.ChangeStatusOptions{})
	require.NoError(t, err)

	budget, err := w.budgetSvc.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	svcID := id.New()
	item := budgets.Item{Type: budgets.ItemTypeService, Description: "labor", Quantity: 1, UnitPrice: 10000, ServiceID: &svcID}
	_, err = w.budgetSvc.AddItem(context.Background(), budget.ID, item)
	require.NoError(t, err)

	_, err = w.budgetSvc.Send(context.Background(), budget.ID)
	require.NoError(t, err)

	// Past diagnosis the line items are frozen.
	_, err = w.budgetSvc.AddItem(context.Background(), budget.ID, item)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}
