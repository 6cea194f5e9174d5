package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/delivery/domain/dao"
)

type DeliveryRepositoryInterface interface {
	GetByOrder(ctx context.Context, orderID int64) (dao.Delivery, error)
	// CreateIfAbsent stores d with its driver and ETA; created is false when
	// the order already has a delivery, which is returned instead.
	CreateIfAbsent(ctx context.Context, d dao.Delivery) (out dao.Delivery, created bool, err error)
	Get(ctx context.Context, id int64) (dao.Delivery, error)
	List(ctx context.Context, limit, offset int) ([]dao.Delivery, error)
	// Complete moves a pending delivery to completed at the given time.
	// A delivery that is already completed is returned as it is.
	Complete(ctx context.Context, id int64, at time.Time) (dao.Delivery, error)
}

type DeliveryRepository struct {
	db db.Pool
}

func NewDeliveryRepository(pool db.Pool) DeliveryRepositoryInterface {
	return &DeliveryRepository{db: pool}
}

const deliveryColumns = `id, order_id, customer_id, address, status, driver_id, driver_name,
	estimated_delivery_time, actual_delivery_time, created_at, updated_at`

func scanDelivery(row pgx.Row) (dao.Delivery, error) {
	var d dao.Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.CustomerID, &d.Address, &d.Status, &d.DriverID, &d.DriverName,
		&d.EstimatedDeliveryTime, &d.ActualDeliveryTime, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dao.Delivery{}, dao.ErrDeliveryNotFound
	}
	return d, err
}

func (dr *DeliveryRepository) GetByOrder(ctx context.Context, orderID int64) (dao.Delivery, error) {
	d, err := scanDelivery(dr.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, dao.ErrDeliveryNotFound) {
			return dao.Delivery{}, err
		}
		return dao.Delivery{}, fmt.Errorf("failed to get delivery of order %d: %w", orderID, err)
	}
	return dr.withItems(ctx, d)
}

func (dr *DeliveryRepository) CreateIfAbsent(ctx context.Context, in dao.Delivery) (dao.Delivery, bool, error) {
	var (
		out     dao.Delivery
		created bool
	)
	err := pgx.BeginFunc(ctx, dr.db, func(tx pgx.Tx) error {
		d, err := scanDelivery(tx.QueryRow(ctx, `
			INSERT INTO deliveries (order_id, customer_id, address, status, driver_id, driver_name, estimated_delivery_time)
			VALUES ($1, $2, $3, 'pending', $4, $5, $6)
			ON CONFLICT (order_id) DO NOTHING
			RETURNING `+deliveryColumns,
			in.OrderID, in.CustomerID, in.Address, in.DriverID, in.DriverName, in.EstimatedDeliveryTime.UTC(),
		))
		if errors.Is(err, dao.ErrDeliveryNotFound) {
			out, err = scanDelivery(tx.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1`, in.OrderID))
			return err
		}
		if err != nil {
			return err
		}

		for _, it := range in.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO delivery_items (delivery_id, item_id, name, quantity)
				VALUES ($1, $2, $3, $4)`,
				d.ID, it.ItemID, it.Name, it.Quantity,
			); err != nil {
				return fmt.Errorf("insert item %s: %w", it.ItemID, err)
			}
		}
		out, created = d, true
		return nil
	})
	if err != nil {
		return dao.Delivery{}, false, fmt.Errorf("failed to create delivery for order %d: %w", in.OrderID, err)
	}
	out, err = dr.withItems(ctx, out)
	return out, created, err
}

func (dr *DeliveryRepository) Get(ctx context.Context, id int64) (dao.Delivery, error) {
	d, err := scanDelivery(dr.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, dao.ErrDeliveryNotFound) {
			return dao.Delivery{}, err
		}
		return dao.Delivery{}, fmt.Errorf("failed to get delivery %d: %w", id, err)
	}
	return dr.withItems(ctx, d)
}

func (dr *DeliveryRepository) List(ctx context.Context, limit, offset int) ([]dao.Delivery, error) {
	rows, err := dr.db.Query(ctx, `SELECT `+deliveryColumns+` FROM deliveries ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.Delivery, error) { return scanDelivery(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan deliveries: %w", err)
	}
	for i := range list {
		if list[i], err = dr.withItems(ctx, list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (dr *DeliveryRepository) Complete(ctx context.Context, id int64, at time.Time) (dao.Delivery, error) {
	if _, err := dr.db.Exec(ctx, `
		UPDATE deliveries SET status = 'completed', actual_delivery_time = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, at.UTC(),
	); err != nil {
		return dao.Delivery{}, fmt.Errorf("failed to complete delivery %d: %w", id, err)
	}
	return dr.Get(ctx, id)
}

func (dr *DeliveryRepository) withItems(ctx context.Context, d dao.Delivery) (dao.Delivery, error) {
	rows, err := dr.db.Query(ctx, `
		SELECT id, delivery_id, item_id, name, quantity
		FROM delivery_items WHERE delivery_id = $1 ORDER BY id`, d.ID)
	if err != nil {
		return dao.Delivery{}, fmt.Errorf("failed to read items of delivery %d: %w", d.ID, err)
	}
	d.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.DeliveryItem, error) {
		var it dao.DeliveryItem
		err := row.Scan(&it.ID, &it.DeliveryID, &it.ItemID, &it.Name, &it.Quantity)
		return it, err
	})
	if err != nil {
		return dao.Delivery{}, fmt.Errorf("failed to scan items of delivery %d: %w", d.ID, err)
	}
	return d, nil
}
