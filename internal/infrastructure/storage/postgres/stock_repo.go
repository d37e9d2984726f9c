package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain"
	"mecanix/internal/domain/stock"
)

const (
	stockItemsTable     = "stock_items"
	stockMovementsTable = "stock_movements"
)

var stockItemCols = []string{
	"id", "deletion_mark", "version", "created_at", "updated_at", "created_by", "updated_by",
	"sku", "name", "current_stock", "min_stock_level", "unit_cost", "unit_sale_price",
}

var stockMovementCols = []string{
	"id", "stock_item_id", "type", "quantity", "movement_date", "reason", "notes", "created_at",
}

// StockRepo implements stock.Repository. The movement insert and the
// balance update run against the same querier, so inside a transaction
// they commit or roll back together.
type StockRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txm *TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ stock.Repository = (*StockRepo)(nil)

func (r *StockRepo) CreateItem(ctx context.Context, item *stock.Item) error {
	q := r.builder.Insert(stockItemsTable).
		Columns(stockItemCols...).
		Values(
			item.ID, item.DeletionMark, item.Version, item.CreatedAt, item.UpdatedAt,
			item.CreatedBy, item.UpdatedBy,
			item.SKU, item.Name, item.CurrentStock, item.MinStockLevel,
			item.UnitCost, item.UnitSalePrice,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock item: %w", err)
	}
	return nil
}

func (r *StockRepo) GetItem(ctx context.Context, itemID id.ID) (*stock.Item, error) {
	return r.getItem(ctx, squirrel.Eq{"id": itemID}, itemID, "")
}

func (r *StockRepo) GetItemBySKU(ctx context.Context, sku string) (*stock.Item, error) {
	return r.getItem(ctx, squirrel.Eq{"sku": sku, "deletion_mark": false}, sku, "")
}

// GetItemForUpdate locks the item row until the surrounding transaction
// ends. Use it for the read-check-write of a balance change.
func (r *StockRepo) GetItemForUpdate(ctx context.Context, itemID id.ID) (*stock.Item, error) {
	return r.getItem(ctx, squirrel.Eq{"id": itemID}, itemID, "FOR UPDATE")
}

func (r *StockRepo) getItem(ctx context.Context, where squirrel.Eq, ref any, suffix string) (*stock.Item, error) {
	q := r.builder.Select(stockItemCols...).
		From(stockItemsTable).
		Where(where).
		Limit(1)
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item stock.Item
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock item", ref)
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return &item, nil
}

// UpdateItem writes the item with optimistic locking. Touch() already
// bumped the in-memory version; the previous value is the expectation.
func (r *StockRepo) UpdateItem(ctx context.Context, item *stock.Item) error {
	q := r.builder.Update(stockItemsTable).
		Set("deletion_mark", item.DeletionMark).
		Set("updated_at", item.UpdatedAt).
		Set("updated_by", item.UpdatedBy).
		Set("sku", item.SKU).
		Set("name", item.Name).
		Set("min_stock_level", item.MinStockLevel).
		Set("unit_cost", item.UnitCost).
		Set("unit_sale_price", item.UnitSalePrice).
		Set("version", item.Version).
		Where(squirrel.Eq{"id": item.ID, "version": item.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock item", item.ID)
	}
	return nil
}

func (r *StockRepo) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	q := r.builder.Select("1").
		From(stockItemsTable).
		Where(squirrel.Eq{"sku": sku, "deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &one, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check sku: %w", err)
	}
	return true, nil
}

func (r *StockRepo) ListItems(ctx context.Context, filter stock.ListFilter) (domain.ListResult[*stock.Item], error) {
	result := domain.ListResult[*stock.Item]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(stockItemCols...).From(stockItemsTable)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}
	if filter.BelowMinimum {
		q = q.Where(squirrel.Expr("current_stock < min_stock_level"))
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
		orderBy = "sku"
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
		return result, fmt.Errorf("list stock items: %w", err)
	}
	return result, nil
}

// CreateMovement appends the ledger row and applies the new balance. Both
// writes go through the transaction in context; calling this outside one
// loses the atomicity the ledger requires.
func (r *StockRepo) CreateMovement(ctx context.Context, movement stock.Movement, newBalance int) error {
	q := r.builder.Insert(stockMovementsTable).
		Columns(stockMovementCols...).
		Values(
			movement.ID, movement.StockItemID, movement.Type, movement.Quantity,
			movement.MovementDate, movement.Reason, movement.Notes, movement.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return r.applyBalance(ctx, movement.StockItemID, newBalance)
}

// UpdateMovement rewrites the ledger row and applies the corrected balance.
func (r *StockRepo) UpdateMovement(ctx context.Context, movement stock.Movement, newBalance int) error {
	q := r.builder.Update(stockMovementsTable).
		Set("type", movement.Type).
		Set("quantity", movement.Quantity).
		Set("movement_date", movement.MovementDate).
		Set("reason", movement.Reason).
		Set("notes", movement.Notes).
		Where(squirrel.Eq{"id": movement.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock movement", movement.ID)
	}

	return r.applyBalance(ctx, movement.StockItemID, newBalance)
}

func (r *StockRepo) applyBalance(ctx context.Context, itemID id.ID, newBalance int) error {
	q := r.builder.Update(stockItemsTable).
		Set("current_stock", newBalance).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build balance update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("apply balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock item", itemID)
	}
	return nil
}

func (r *StockRepo) GetMovement(ctx context.Context, movementID id.ID) (stock.Movement, error) {
	q := r.builder.Select(stockMovementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return stock.Movement{}, fmt.Errorf("build query: %w", err)
	}

	var movement stock.Movement
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &movement, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Movement{}, apperror.NewNotFound("stock movement", movementID)
		}
		return stock.Movement{}, fmt.Errorf("get movement: %w", err)
	}
	return movement, nil
}

func (r *StockRepo) GetMovements(ctx context.Context, itemID id.ID, filter stock.MovementFilter) ([]stock.Movement, error) {
	q := r.builder.Select(stockMovementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"stock_item_id": itemID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"movement_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"movement_date": *filter.ToDate})
	}

	q = q.OrderBy("movement_date", "created_at")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}
