package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/notificator/domain/dao"
)

type NotificationRepositoryInterface interface {
	// Record stores n unless the order already has a notification of the
	// same kind; created reports which happened.
	Record(ctx context.Context, n dao.Notification) (out dao.Notification, created bool, err error)
	// List returns notifications newest first. An empty customerID lists all.
	List(ctx context.Context, customerID string, limit, offset int) ([]dao.Notification, error)
}

type NotificationRepository struct {
	db db.Pool
}

func NewNotificationRepository(pool db.Pool) NotificationRepositoryInterface {
	return &NotificationRepository{db: pool}
}

const notificationColumns = `id, order_id, customer_id, kind, message, created_at`

func scanNotification(row pgx.Row) (dao.Notification, error) {
	var n dao.Notification
	err := row.Scan(&n.ID, &n.OrderID, &n.CustomerID, &n.Kind, &n.Message, &n.CreatedAt)
	return n, err
}

func (nr *NotificationRepository) Record(ctx context.Context, n dao.Notification) (dao.Notification, bool, error) {
	out, err := scanNotification(nr.db.QueryRow(ctx, `
		INSERT INTO notifications (order_id, customer_id, kind, message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, kind) DO NOTHING
		RETURNING `+notificationColumns,
		n.OrderID, n.CustomerID, n.Kind, n.Message,
	))
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return dao.Notification{}, false, fmt.Errorf("failed to record notification for order %d: %w", n.OrderID, err)
	}

	out, err = scanNotification(nr.db.QueryRow(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE order_id = $1 AND kind = $2`,
		n.OrderID, n.Kind,
	))
	if err != nil {
		return dao.Notification{}, false, fmt.Errorf("failed to read notification for order %d: %w", n.OrderID, err)
	}
	return out, false, nil
}

func (nr *NotificationRepository) List(ctx context.Context, customerID string, limit, offset int) ([]dao.Notification, error) {
	rows, err := nr.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE $1::text = '' OR customer_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`,
		customerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.Notification, error) { return scanNotification(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return out, nil
}
