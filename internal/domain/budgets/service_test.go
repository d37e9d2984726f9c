package budgets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain"
	"mecanix/internal/domain/stock"
	"mecanix/internal/events"
)

// rollbackable lets the tx fake undo fake-store mutations when the
// transactional function fails, mirroring a real rollback.
type rollbackable interface {
	snapshot() any
	restore(any)
}

type txFake struct {
	stores        []rollbackable
	readOnlyCalls int
}

func (m *txFake) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnlyCalls++
	return fn(ctx)
}

func (m *txFake) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snaps := make([]any, len(m.stores))
	for i, s := range m.stores {
		snaps[i] = s.snapshot()
	}
	if err := fn(ctx); err != nil {
		for i, s := range m.stores {
			s.restore(snaps[i])
		}
		return err
	}
	return nil
}

type repoFake struct {
	budgets map[id.ID]*Budget
	items   map[id.ID][]Item
}

func newRepoFake() *repoFake {
	return &repoFake{
		budgets: make(map[id.ID]*Budget),
		items:   make(map[id.ID][]Item),
	}
}

func (r *repoFake) snapshot() any {
	budgets := make(map[id.ID]*Budget, len(r.budgets))
	for k, v := range r.budgets {
		cp := *v
		budgets[k] = &cp
	}
	items := make(map[id.ID][]Item, len(r.items))
	for k, v := range r.items {
		items[k] = append([]Item(nil), v...)
	}
	return &repoFake{budgets: budgets, items: items}
}

func (r *repoFake) restore(snap any) {
	prev := snap.(*repoFake)
	r.budgets = prev.budgets
	r.items = prev.items
}

func (r *repoFake) Create(_ context.Context, b *Budget) error {
	cp := *b
	r.budgets[b.ID] = &cp
	return nil
}

func (r *repoFake) GetByID(_ context.Context, budgetID id.ID) (*Budget, error) {
	b, ok := r.budgets[budgetID]
	if !ok {
		return nil, apperror.NewNotFound("budget", budgetID)
	}
	cp := *b
	return &cp, nil
}

func (r *repoFake) GetByOrderID(_ context.Context, orderID id.ID) (*Budget, error) {
	for _, b := range r.budgets {
		if b.OrderID == orderID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("budget", orderID)
}

func (r *repoFake) Update(_ context.Context, b *Budget) error {
	if _, ok := r.budgets[b.ID]; !ok {
		return apperror.NewNotFound("budget", b.ID)
	}
	cp := *b
	r.budgets[b.ID] = &cp
	return nil
}

func (r *repoFake) GetItems(_ context.Context, budgetID id.ID) ([]Item, error) {
	return append([]Item(nil), r.items[budgetID]...), nil
}

func (r *repoFake) SaveItems(_ context.Context, budgetID id.ID, items []Item) error {
	r.items[budgetID] = append([]Item(nil), items...)
	return nil
}

func (r *repoFake) List(_ context.Context, _ ListFilter) (domain.ListResult[*Budget], error) {
	var out []*Budget
	for _, b := range r.budgets {
		cp := *b
		out = append(out, &cp)
	}
	return domain.ListResult[*Budget]{Items: out, TotalCount: int64(len(out))}, nil
}

type policyFake struct {
	err error
}

func (p *policyFake) AllowBudgetEditing(context.Context, id.ID) error { return p.err }

// ledgerFake tracks per-item balances like the real stock ledger would.
type ledgerFake struct {
	balances map[id.ID]int
	applied  []stock.Movement
}

func newLedgerFake() *ledgerFake {
	return &ledgerFake{balances: make(map[id.ID]int)}
}

func (l *ledgerFake) snapshot() any {
	balances := make(map[id.ID]int, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}
	return &ledgerFake{balances: balances, applied: append([]stock.Movement(nil), l.applied...)}
}

func (l *ledgerFake) restore(snap any) {
	prev := snap.(*ledgerFake)
	l.balances = prev.balances
	l.applied = prev.applied
}

func (l *ledgerFake) ApplyMovement(_ context.Context, itemID id.ID, mType stock.MovementType, quantity int, opts stock.MovementOptions) (stock.Movement, error) {
	m := stock.NewMovement(itemID, mType, quantity, opts.Date)
	balance := l.balances[itemID] + m.EffectiveQuantity()
	if balance < 0 {
		return stock.Movement{}, apperror.NewInsufficientStock(itemID.String(), int64(quantity), int64(l.balances[itemID]))
	}
	l.balances[itemID] = balance
	l.applied = append(l.applied, m)
	return m, nil
}

type fixture struct {
	svc    *Service
	repo   *repoFake
	ledger *ledgerFake
	policy *policyFake
	bus    *events.Bus
	txm    *txFake
}

func newFixture() *fixture {
	repo := newRepoFake()
	ledger := newLedgerFake()
	policy := &policyFake{}
	bus := events.NewBus()
	txm := &txFake{stores: []rollbackable{repo, ledger}}
	return &fixture{
		svc:    NewService(repo, policy, ledger, txm, bus),
		repo:   repo,
		ledger: ledger,
		policy: policy,
		bus:    bus,
		txm:    txm,
	}
}

func (f *fixture) sentBudget(t *testing.T, items ...Item) *Budget {
	t.Helper()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	for _, item := range items {
		_, err = f.svc.AddItem(ctx, budget.ID, item)
		require.NoError(t, err)
	}

	sent, err := f.svc.Send(ctx, budget.ID)
	require.NoError(t, err)
	return sent
}

func TestCreateForOrder_Deterministic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	orderID, clientID := id.New(), id.New()

	first, err := f.svc.CreateForOrder(ctx, orderID, clientID, 30)
	require.NoError(t, err)
	second, err := f.svc.CreateForOrder(ctx, orderID, clientID, 30)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.repo.budgets, 1)
	assert.Equal(t, StatusGenerated, first.Status)
}

func TestAddItem_RecomputesAndPersistsTotal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	updated, err := f.svc.AddItem(ctx, budget.ID, serviceItem(budget.ID, 1, 10000))
	require.NoError(t, err)
	assert.EqualValues(t, 10000, updated.TotalAmount)

	updated, err = f.svc.AddItem(ctx, budget.ID, serviceItem(budget.ID, 2, 2500))
	require.NoError(t, err)
	assert.EqualValues(t, 15000, updated.TotalAmount)

	stored, err := f.svc.GetWithItems(ctx, budget.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 15000, stored.TotalAmount)
	assert.Len(t, stored.Items, 2)
}

func TestAddItem_BlockedByOrderStage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	f.policy.err = apperror.NewConflict("order is not in diagnosis")
	_, err = f.svc.AddItem(ctx, budget.ID, serviceItem(budget.ID, 1, 1000))
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestRemoveItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, budget.ID, serviceItem(budget.ID, 1, 10000))
	require.NoError(t, err)

	withItems, err := f.svc.GetWithItems(ctx, budget.ID)
	require.NoError(t, err)
	require.Len(t, withItems.Items, 1)

	updated, err := f.svc.RemoveItem(ctx, budget.ID, withItems.Items[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated.TotalAmount)
	assert.Empty(t, updated.Items)

	_, err = f.svc.RemoveItem(ctx, budget.ID, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestSend(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	t.Run("empty budget rejected", func(t *testing.T) {
		_, err := f.svc.Send(ctx, budget.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	_, err = f.svc.AddItem(ctx, budget.ID, serviceItem(budget.ID, 1, 5000))
	require.NoError(t, err)

	sent, err := f.svc.Send(ctx, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)
	require.NotNil(t, sent.SentDate)

	t.Run("double send is an invalid transition", func(t *testing.T) {
		_, err := f.svc.Send(ctx, budget.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatusTransition))
	})
}

func TestApprove_ConsumesStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	partID := id.New()
	f.ledger.balances[partID] = 10

	item := Item{Type: ItemTypeStockItem, Description: "brake pads", Quantity: 4, UnitPrice: 1000, StockItemID: &partID}
	budget := f.sentBudget(t, item, serviceItem(id.Nil(), 1, 10000))

	approved, err := f.svc.Approve(ctx, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovalDate)

	// Only the stock line consumed stock.
	assert.Equal(t, 6, f.ledger.balances[partID])
	require.Len(t, f.ledger.applied, 1)
	assert.Equal(t, stock.MovementOut, f.ledger.applied[0].Type)
}

func TestApprove_InsufficientStockAbortsEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	okPart, scarcePart := id.New(), id.New()
	f.ledger.balances[okPart] = 10
	f.ledger.balances[scarcePart] = 1

	first := Item{Type: ItemTypeStockItem, Description: "filters", Quantity: 2, UnitPrice: 500, StockItemID: &okPart}
	second := Item{Type: ItemTypeStockItem, Description: "pads", Quantity: 5, UnitPrice: 1000, StockItemID: &scarcePart}
	budget := f.sentBudget(t, first, second)

	_, err := f.svc.Approve(ctx, budget.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// The first decrement was rolled back with the transaction; no partial
	// consumption leaks out and the budget is still SENT.
	assert.Equal(t, 10, f.ledger.balances[okPart])
	assert.Equal(t, 1, f.ledger.balances[scarcePart])
	assert.Empty(t, f.ledger.applied)

	stored, err := f.svc.GetWithItems(ctx, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, stored.Status)
}

func TestApprove_AlreadyApproved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget := f.sentBudget(t, serviceItem(id.Nil(), 1, 10000))

	_, err := f.svc.Approve(ctx, budget.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, budget.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBudgetAlreadyApproved))
}

func TestApprove_FromGeneratedIsInvalidTransition(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, budget.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatusTransition))
}

func TestApprove_Expired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget := f.sentBudget(t, serviceItem(id.Nil(), 1, 10000))

	// Age the stored budget past its validity window.
	stored := f.repo.budgets[budget.ID]
	stored.GenerationDate = time.Now().UTC().Add(-31 * 24 * time.Hour)

	_, err := f.svc.Approve(ctx, budget.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBudgetExpired))
}

func TestReject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget := f.sentBudget(t, serviceItem(id.Nil(), 1, 10000))

	rejected, err := f.svc.Reject(ctx, budget.ID, "too expensive")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "too expensive", rejected.Notes)
	require.NotNil(t, rejected.RejectionDate)

	_, err = f.svc.Reject(ctx, budget.ID, "again")
	assert.True(t, apperror.HasCode(err, apperror.CodeBudgetAlreadyRejected))
}

func TestRegenerate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget := f.sentBudget(t, serviceItem(id.Nil(), 1, 10000))
	_, err := f.svc.Reject(ctx, budget.ID, "no")
	require.NoError(t, err)

	fresh, err := f.svc.Regenerate(ctx, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, fresh.Status)
	assert.Nil(t, fresh.SentDate)
	assert.Nil(t, fresh.RejectionDate)

	t.Run("approved budgets stay approved", func(t *testing.T) {
		approved := f.sentBudget(t, serviceItem(id.Nil(), 1, 2000))
		_, err := f.svc.Approve(ctx, approved.ID)
		require.NoError(t, err)

		_, err = f.svc.Regenerate(ctx, approved.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
	})
}

func TestGetWithItems_DetectsDrift(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, budget.ID, serviceItem(budget.ID, 1, 10000))
	require.NoError(t, err)

	// Corrupt the stored total behind the service's back.
	f.repo.budgets[budget.ID].TotalAmount = 1

	_, err = f.svc.GetWithItems(ctx, budget.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBudgetTotalMismatch))
}

func TestGetWithItems_RunsReadOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	budget, err := f.svc.CreateForOrder(ctx, id.New(), id.New(), 30)
	require.NoError(t, err)

	before := f.txm.readOnlyCalls
	loaded, err := f.svc.GetWithItems(ctx, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, budget.ID, loaded.ID)
	assert.Equal(t, before+1, f.txm.readOnlyCalls)
}
