package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
)

func appendStatus(ctx context.Context, q db.Querier, orderID int64, status dao.Status, changedBy, notes string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''))`,
		orderID, status, changedBy, notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}
	return nil
}

// Timeline returns the status history of an order, oldest first.
func (or *OrderRepository) Timeline(ctx context.Context, id int64, limit, offset int) ([]dao.StatusChange, error) {
	var exists bool
	if err := or.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check order %d: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrOrderNotFound
	}

	rows, err := or.db.Query(ctx, `
		SELECT id, order_id, status, changed_by, changed_at, COALESCE(notes, '')
		FROM order_status_log WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
		LIMIT $2 OFFSET $3`,
		id, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline of order %d: %w", id, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.StatusChange, error) {
		var c dao.StatusChange
		err := row.Scan(&c.ID, &c.OrderID, &c.Status, &c.ChangedBy, &c.ChangedAt, &c.Notes)
		return c, err
	})
}
