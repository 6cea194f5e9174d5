package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/kitchen/domain/dao"
)

type KitchenRepositoryInterface interface {
	// CreateIfAbsent stores a pending kitchen order for orderID. When one
	// already exists it is returned unchanged with created=false.
	CreateIfAbsent(ctx context.Context, orderID int64, items []dao.OrderItem) (ko dao.KitchenOrder, created bool, err error)
	Get(ctx context.Context, id int64) (dao.KitchenOrder, error)
	List(ctx context.Context, limit, offset int) ([]dao.KitchenOrder, error)
	// MarkReady moves a pending order to ready; other statuses are kept.
	MarkReady(ctx context.Context, id int64) (dao.KitchenOrder, error)
	// UpdateItemStatus sets the status of the order's lines for itemID and
	// completes the order when it was the last open line.
	UpdateItemStatus(ctx context.Context, id int64, itemID string, status dao.Status) (ko dao.KitchenOrder, completed bool, err error)
}

type KitchenRepository struct {
	db db.Pool
}

func NewKitchenRepository(pool db.Pool) KitchenRepositoryInterface {
	return &KitchenRepository{db: pool}
}

const kitchenOrderColumns = `id, order_id, status, created_at, updated_at`

func scanKitchenOrder(row pgx.Row) (dao.KitchenOrder, error) {
	var ko dao.KitchenOrder
	err := row.Scan(&ko.ID, &ko.OrderID, &ko.Status, &ko.CreatedAt, &ko.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dao.KitchenOrder{}, dao.ErrKitchenOrderNotFound
	}
	return ko, err
}

func (kr *KitchenRepository) CreateIfAbsent(ctx context.Context, orderID int64, items []dao.OrderItem) (dao.KitchenOrder, bool, error) {
	var (
		out     dao.KitchenOrder
		created bool
	)
	err := pgx.BeginFunc(ctx, kr.db, func(tx pgx.Tx) error {
		ko, err := scanKitchenOrder(tx.QueryRow(ctx, `
			INSERT INTO kitchen_orders (order_id)
			VALUES ($1)
			ON CONFLICT (order_id) DO NOTHING
			RETURNING `+kitchenOrderColumns,
			orderID,
		))
		if errors.Is(err, dao.ErrKitchenOrderNotFound) {
			// lost the race or a redelivery: keep what is there
			out, err = scanKitchenOrder(tx.QueryRow(ctx, `SELECT `+kitchenOrderColumns+` FROM kitchen_orders WHERE order_id = $1`, orderID))
			return err
		}
		if err != nil {
			return err
		}

		for _, it := range items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO kitchen_order_items (kitchen_order_id, item_id, name, quantity)
				VALUES ($1, $2, $3, $4)`,
				ko.ID, it.ItemID, it.Name, it.Quantity,
			); err != nil {
				return fmt.Errorf("insert item %s: %w", it.ItemID, err)
			}
		}
		out, created = ko, true
		return nil
	})
	if err != nil {
		return dao.KitchenOrder{}, false, fmt.Errorf("failed to create kitchen order for order %d: %w", orderID, err)
	}
	if out.Items, err = itemsOf(ctx, kr.db, out.ID); err != nil {
		return dao.KitchenOrder{}, false, err
	}
	return out, created, nil
}

func (kr *KitchenRepository) Get(ctx context.Context, id int64) (dao.KitchenOrder, error) {
	ko, err := scanKitchenOrder(kr.db.QueryRow(ctx, `SELECT `+kitchenOrderColumns+` FROM kitchen_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, dao.ErrKitchenOrderNotFound) {
			return dao.KitchenOrder{}, err
		}
		return dao.KitchenOrder{}, fmt.Errorf("failed to get kitchen order %d: %w", id, err)
	}
	if ko.Items, err = itemsOf(ctx, kr.db, id); err != nil {
		return dao.KitchenOrder{}, err
	}
	return ko, nil
}

func (kr *KitchenRepository) List(ctx context.Context, limit, offset int) ([]dao.KitchenOrder, error) {
	rows, err := kr.db.Query(ctx, `SELECT `+kitchenOrderColumns+` FROM kitchen_orders ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list kitchen orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.KitchenOrder, error) { return scanKitchenOrder(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan kitchen orders: %w", err)
	}
	for i := range orders {
		if orders[i].Items, err = itemsOf(ctx, kr.db, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (kr *KitchenRepository) MarkReady(ctx context.Context, id int64) (dao.KitchenOrder, error) {
	if _, err := kr.db.Exec(ctx, `
		UPDATE kitchen_orders SET status = 'ready', updated_at = now()
		WHERE id = $1 AND status = 'pending'`, id); err != nil {
		return dao.KitchenOrder{}, fmt.Errorf("failed to mark kitchen order %d ready: %w", id, err)
	}
	return kr.Get(ctx, id)
}

func (kr *KitchenRepository) UpdateItemStatus(ctx context.Context, id int64, itemID string, status dao.Status) (dao.KitchenOrder, bool, error) {
	var completed bool
	err := pgx.BeginFunc(ctx, kr.db, func(tx pgx.Tx) error {
		ko, err := scanKitchenOrder(tx.QueryRow(ctx, `SELECT `+kitchenOrderColumns+` FROM kitchen_orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if ko.Status == dao.StatusCompleted {
			return dao.ErrKitchenOrderClosed
		}

		tag, err := tx.Exec(ctx, `
			UPDATE kitchen_order_items SET status = $3, updated_at = now()
			WHERE kitchen_order_id = $1 AND item_id = $2`,
			id, itemID, status,
		)
		if err != nil {
			return fmt.Errorf("update item %s: %w", itemID, err)
		}
		if tag.RowsAffected() == 0 {
			return dao.ErrItemNotFound
		}

		tag, err = tx.Exec(ctx, `
			UPDATE kitchen_orders SET status = 'completed', updated_at = now()
			WHERE id = $1
			  AND status <> 'completed'
			  AND NOT EXISTS (
				SELECT 1 FROM kitchen_order_items
				WHERE kitchen_order_id = $1 AND status <> 'completed'
			  )`, id)
		if err != nil {
			return fmt.Errorf("complete kitchen order: %w", err)
		}
		completed = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		if errors.Is(err, dao.ErrKitchenOrderNotFound) || errors.Is(err, dao.ErrItemNotFound) || errors.Is(err, dao.ErrKitchenOrderClosed) {
			return dao.KitchenOrder{}, false, err
		}
		return dao.KitchenOrder{}, false, fmt.Errorf("failed to update item %s of kitchen order %d: %w", itemID, id, err)
	}
	ko, err := kr.Get(ctx, id)
	return ko, completed, err
}

func itemsOf(ctx context.Context, q db.Querier, kitchenOrderID int64) ([]dao.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, kitchen_order_id, item_id, name, quantity, status
		FROM kitchen_order_items WHERE kitchen_order_id = $1 ORDER BY id`, kitchenOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read items of kitchen order %d: %w", kitchenOrderID, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.OrderItem, error) {
		var it dao.OrderItem
		err := row.Scan(&it.ID, &it.KitchenOrderID, &it.ItemID, &it.Name, &it.Quantity, &it.Status)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan items of kitchen order %d: %w", kitchenOrderID, err)
	}
	return items, nil
}
