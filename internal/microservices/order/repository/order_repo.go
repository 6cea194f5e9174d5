package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
)

type OrderRepositoryInterface interface {
	Create(ctx context.Context, order dao.Order, changedBy string) (dao.Order, error)
	Get(ctx context.Context, id int64) (dao.Order, error)
	List(ctx context.Context, limit, offset int) ([]dao.Order, error)
	// Transition applies u when the guard allows it and reports whether it did.
	Transition(ctx context.Context, id int64, u dao.StatusUpdate) (dao.Order, bool, error)
	Timeline(ctx context.Context, id int64, limit, offset int) ([]dao.StatusChange, error)
}

type OrderRepository struct {
	db db.Pool
}

func NewOrderRepository(pool db.Pool) OrderRepositoryInterface {
	return &OrderRepository{db: pool}
}

const orderColumns = `id, customer_id, delivery_address, status, delivery_id, driver_id, driver_name,
	estimated_delivery_time, actual_delivery_time, created_at, updated_at`

func scanOrder(row pgx.Row) (dao.Order, error) {
	var o dao.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.DeliveryAddress, &o.Status, &o.DeliveryID, &o.DriverID, &o.DriverName,
		&o.EstimatedDeliveryTime, &o.ActualDeliveryTime, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dao.Order{}, dao.ErrOrderNotFound
	}
	return o, err
}

func (or *OrderRepository) Create(ctx context.Context, order dao.Order, changedBy string) (dao.Order, error) {
	var out dao.Order
	err := pgx.BeginFunc(ctx, or.db, func(tx pgx.Tx) error {
		// 1. Insert order
		o, err := scanOrder(tx.QueryRow(ctx, `
			INSERT INTO orders (customer_id, delivery_address, status)
			VALUES ($1, $2, $3)
			RETURNING `+orderColumns,
			order.CustomerID, order.DeliveryAddress, dao.StatusPending,
		))
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		// 2. Insert order items
		o.Items = make([]dao.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			it := item
			it.OrderID = o.ID
			if err := tx.QueryRow(ctx, `
				INSERT INTO order_items (order_id, item_id, name, quantity, price)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, price`,
				o.ID, it.ItemID, it.Name, it.Quantity, it.Price,
			).Scan(&it.ID, &it.Price); err != nil {
				return fmt.Errorf("failed to insert order item %s: %w", it.Name, err)
			}
			o.Items = append(o.Items, it)
		}

		// 3. Insert into order_status_log
		if err := appendStatus(ctx, tx, o.ID, dao.StatusPending, changedBy, "order created"); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return dao.Order{}, err
	}
	return out, nil
}

func (or *OrderRepository) Get(ctx context.Context, id int64) (dao.Order, error) {
	o, err := scanOrder(or.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, dao.ErrOrderNotFound) {
			return dao.Order{}, err
		}
		return dao.Order{}, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	if o.Items, err = itemsOf(ctx, or.db, id); err != nil {
		return dao.Order{}, err
	}
	return o, nil
}

func (or *OrderRepository) List(ctx context.Context, limit, offset int) ([]dao.Order, error) {
	rows, err := or.db.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.Order, error) { return scanOrder(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	for i := range orders {
		if orders[i].Items, err = itemsOf(ctx, or.db, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Transition locks the order row, checks the guard and, when allowed,
// updates the order and appends to its status log in the same transaction.
func (or *OrderRepository) Transition(ctx context.Context, id int64, u dao.StatusUpdate) (dao.Order, bool, error) {
	var (
		out     dao.Order
		applied bool
	)
	err := pgx.BeginFunc(ctx, or.db, func(tx pgx.Tx) error {
		cur, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !dao.CanTransition(cur.Status, u.Status) {
			out = cur
			return nil
		}

		o, err := scanOrder(tx.QueryRow(ctx, `
			UPDATE orders SET
				status                  = $2,
				delivery_id             = COALESCE($3, delivery_id),
				driver_id               = COALESCE($4, driver_id),
				driver_name             = COALESCE($5, driver_name),
				estimated_delivery_time = COALESCE($6, estimated_delivery_time),
				actual_delivery_time    = COALESCE($7, actual_delivery_time),
				updated_at              = now()
			WHERE id = $1
			RETURNING `+orderColumns,
			id, u.Status, u.DeliveryID, u.DriverID, u.DriverName, u.EstimatedDeliveryTime, u.ActualDeliveryTime,
		))
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := appendStatus(ctx, tx, id, u.Status, u.ChangedBy, u.Notes); err != nil {
			return err
		}
		out, applied = o, true
		return nil
	})
	if err != nil {
		if errors.Is(err, dao.ErrOrderNotFound) {
			return dao.Order{}, false, err
		}
		return dao.Order{}, false, fmt.Errorf("failed to move order %d to %s: %w", id, u.Status, err)
	}
	if out.Items, err = itemsOf(ctx, or.db, id); err != nil {
		return dao.Order{}, false, err
	}
	return out, applied, nil
}

func itemsOf(ctx context.Context, q db.Querier, orderID int64) ([]dao.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, item_id, name, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read items of order %d: %w", orderID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.OrderItem, error) {
		var it dao.OrderItem
		err := row.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.Name, &it.Quantity, &it.Price)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan items of order %d: %w", orderID, err)
	}
	return items, nil
}
