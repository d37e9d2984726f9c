package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain"
	"mecanix/internal/domain/budgets"
)

const (
	budgetsTable     = "budgets"
	budgetItemsTable = "budget_items"
)

var budgetCols = []string{
	"id", "deletion_mark", "version", "created_at", "updated_at", "created_by", "updated_by",
	"order_id", "client_id", "status", "total_amount", "validity_days",
	"generation_date", "sent_date", "approval_date", "rejection_date", "notes",
}

var budgetItemCols = []string{
	"id", "budget_id", "type", "description", "quantity",
	"unit_price", "total_price", "service_id", "stock_item_id",
}

// BudgetRepo implements budgets.Repository. Line items are stored in
// their own table and rewritten wholesale on SaveItems, which keeps the
// persisted set exactly in step with the recomputed total.
type BudgetRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewBudgetRepo creates a new budget repository.
func NewBudgetRepo(txm *TxManager) *BudgetRepo {
	return &BudgetRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ budgets.Repository = (*BudgetRepo)(nil)

func (r *BudgetRepo) Create(ctx context.Context, budget *budgets.Budget) error {
	q := r.builder.Insert(budgetsTable).
		Columns(budgetCols...).
		Values(
			budget.ID, budget.DeletionMark, budget.Version, budget.CreatedAt, budget.UpdatedAt,
			budget.CreatedBy, budget.UpdatedBy,
			budget.OrderID, budget.ClientID, budget.Status, budget.TotalAmount,
			budget.ValidityDays, budget.GenerationDate,
			budget.SentDate, budget.ApprovalDate, budget.RejectionDate, budget.Notes,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *BudgetRepo) GetByID(ctx context.Context, budgetID id.ID) (*budgets.Budget, error) {
	return r.get(ctx, squirrel.Eq{"id": budgetID}, budgetID)
}

func (r *BudgetRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*budgets.Budget, error) {
	return r.get(ctx, squirrel.Eq{"order_id": orderID, "deletion_mark": false}, orderID)
}

func (r *BudgetRepo) get(ctx context.Context, where squirrel.Eq, ref any) (*budgets.Budget, error) {
	q := r.builder.Select(budgetCols...).
		From(budgetsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var budget budgets.Budget
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &budget, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("budget", ref)
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &budget, nil
}

func (r *BudgetRepo) Update(ctx context.Context, budget *budgets.Budget) error {
	q := r.builder.Update(budgetsTable).
		Set("deletion_mark", budget.DeletionMark).
		Set("updated_at", budget.UpdatedAt).
		Set("updated_by", budget.UpdatedBy).
		Set("status", budget.Status).
		Set("total_amount", budget.TotalAmount).
		Set("validity_days", budget.ValidityDays).
		Set("generation_date", budget.GenerationDate).
		Set("sent_date", budget.SentDate).
		Set("approval_date", budget.ApprovalDate).
		Set("rejection_date", budget.RejectionDate).
		Set("notes", budget.Notes).
		Set("version", budget.Version).
		Where(squirrel.Eq{"id": budget.ID, "version": budget.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("budget", budget.ID)
	}
	return nil
}

func (r *BudgetRepo) GetItems(ctx context.Context, budgetID id.ID) ([]budgets.Item, error) {
	q := r.builder.Select(budgetItemCols...).
		From(budgetItemsTable).
		Where(squirrel.Eq{"budget_id": budgetID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []budgets.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select budget items: %w", err)
	}
	return items, nil
}

// SaveItems replaces the full line-item set for the budget.
func (r *BudgetRepo) SaveItems(ctx context.Context, budgetID id.ID, items []budgets.Item) error {
	querier := r.txm.GetQuerier(ctx)

	delSQL, delArgs, err := r.builder.Delete(budgetItemsTable).
		Where(squirrel.Eq{"budget_id": budgetID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete budget items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	q := r.builder.Insert(budgetItemsTable).Columns(budgetItemCols...)
	for _, item := range items {
		q = q.Values(
			item.ID, item.BudgetID, item.Type, item.Description, item.Quantity,
			item.UnitPrice, item.TotalPrice, item.ServiceID, item.StockItemID,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert budget items: %w", err)
	}
	return nil
}

func (r *BudgetRepo) List(ctx context.Context, filter budgets.ListFilter) (domain.ListResult[*budgets.Budget], error) {
	result := domain.ListResult[*budgets.Budget]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(budgetCols...).From(budgetsTable)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	querier := r.txm.GetQuerier(ctx)

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "generation_date DESC"
	}
	q = q.OrderBy(orderBy)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list budgets: %w", err)
	}
	return result, nil
}
