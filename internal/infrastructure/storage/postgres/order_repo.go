package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain"
	"mecanix/internal/domain/orders"
)

const ordersTable = "orders"

var orderCols = []string{
	"id", "deletion_mark", "version", "created_at", "updated_at", "created_by", "updated_by",
	"client_id", "vehicle_id", "status", "requested_at", "delivery_date", "cancellation_reason",
}

// OrderRepo implements orders.Repository.
type OrderRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *TxManager) *OrderRepo {
	return &OrderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ orders.Repository = (*OrderRepo)(nil)

func (r *OrderRepo) Create(ctx context.Context, order *orders.Order) error {
	q := r.builder.Insert(ordersTable).
		Columns(orderCols...).
		Values(
			order.ID, order.DeletionMark, order.Version, order.CreatedAt, order.UpdatedAt,
			order.CreatedBy, order.UpdatedBy,
			order.ClientID, order.VehicleID, order.Status, order.RequestedAt,
			order.DeliveryDate, order.CancellationReason,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	q := r.builder.Select(orderCols...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order orders.Order
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepo) Update(ctx context.Context, order *orders.Order) error {
	q := r.builder.Update(ordersTable).
		Set("deletion_mark", order.DeletionMark).
		Set("updated_at", order.UpdatedAt).
		Set("updated_by", order.UpdatedBy).
		Set("status", order.Status).
		Set("delivery_date", order.DeliveryDate).
		Set("cancellation_reason", order.CancellationReason).
		Set("version", order.Version).
		Where(squirrel.Eq{"id": order.ID, "version": order.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("order", order.ID)
	}
	return nil
}

func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) (domain.ListResult[*orders.Order], error) {
	result := domain.ListResult[*orders.Order]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(orderCols...).From(ordersTable)

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
		orderBy = "requested_at DESC"
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
		return result, fmt.Errorf("list orders: %w", err)
	}
	return result, nil
}
