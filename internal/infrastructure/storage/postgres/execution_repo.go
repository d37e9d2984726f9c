package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/id"
	"mecanix/internal/domain"
	"mecanix/internal/domain/executions"
)

const executionsTable = "executions"

var executionCols = []string{
	"id", "deletion_mark", "version", "created_at", "updated_at", "created_by", "updated_by",
	"order_id", "mechanic_id", "status", "started_at", "completed_at", "notes",
}

// ExecutionRepo implements executions.Repository.
type ExecutionRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewExecutionRepo creates a new execution repository.
func NewExecutionRepo(txm *TxManager) *ExecutionRepo {
	return &ExecutionRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ executions.Repository = (*ExecutionRepo)(nil)

func (r *ExecutionRepo) Create(ctx context.Context, execution *executions.Execution) error {
	q := r.builder.Insert(executionsTable).
		Columns(executionCols...).
		Values(
			execution.ID, execution.DeletionMark, execution.Version,
			execution.CreatedAt, execution.UpdatedAt, execution.CreatedBy, execution.UpdatedBy,
			execution.OrderID, execution.MechanicID, execution.Status,
			execution.StartedAt, execution.CompletedAt, execution.Notes,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

func (r *ExecutionRepo) GetByID(ctx context.Context, executionID id.ID) (*executions.Execution, error) {
	return r.get(ctx, squirrel.Eq{"id": executionID}, executionID)
}

func (r *ExecutionRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*executions.Execution, error) {
	return r.get(ctx, squirrel.Eq{"order_id": orderID, "deletion_mark": false}, orderID)
}

func (r *ExecutionRepo) get(ctx context.Context, where squirrel.Eq, ref any) (*executions.Execution, error) {
	q := r.builder.Select(executionCols...).
		From(executionsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var execution executions.Execution
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &execution, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("execution", ref)
		}
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return &execution, nil
}

func (r *ExecutionRepo) Update(ctx context.Context, execution *executions.Execution) error {
	q := r.builder.Update(executionsTable).
		Set("deletion_mark", execution.DeletionMark).
		Set("updated_at", execution.UpdatedAt).
		Set("updated_by", execution.UpdatedBy).
		Set("mechanic_id", execution.MechanicID).
		Set("status", execution.Status).
		Set("started_at", execution.StartedAt).
		Set("completed_at", execution.CompletedAt).
		Set("notes", execution.Notes).
		Set("version", execution.Version).
		Where(squirrel.Eq{"id": execution.ID, "version": execution.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("execution", execution.ID)
	}
	return nil
}

func (r *ExecutionRepo) List(ctx context.Context, filter executions.ListFilter) (domain.ListResult[*executions.Execution], error) {
	result := domain.ListResult[*executions.Execution]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(executionCols...).From(executionsTable)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.MechanicID != nil {
		q = q.Where(squirrel.Eq{"mechanic_id": *filter.MechanicID})
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
		orderBy = "created_at DESC"
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
		return result, fmt.Errorf("list executions: %w", err)
	}
	return result, nil
}
