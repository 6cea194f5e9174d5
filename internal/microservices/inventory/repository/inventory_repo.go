package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikolovlazar/tracing-demos/internal/common/db"
	"github.com/nikolovlazar/tracing-demos/internal/domain/events"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dao"
)

type InventoryRepositoryInterface interface {
	List(ctx context.Context, limit, offset int) ([]dao.Item, error)
	Get(ctx context.Context, id int64) (dao.Item, error)
	Create(ctx context.Context, item dao.Item) (dao.Item, error)
	Update(ctx context.Context, id int64, patch dao.ItemPatch) (dao.Item, error)
	Delete(ctx context.Context, id int64) error
	SetQuantity(ctx context.Context, id int64, quantity int) (dao.Item, error)
	Reserve(ctx context.Context, orderID int64, lines []dao.ReservationLine) (dao.Reservation, error)
}

type InventoryRepository struct {
	db db.Pool
}

func NewInventoryRepository(pool db.Pool) InventoryRepositoryInterface {
	return &InventoryRepository{db: pool}
}

const itemColumns = `id, name, COALESCE(description, ''), quantity, price, created_at, updated_at`

func scanItem(row pgx.Row) (dao.Item, error) {
	var it dao.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dao.Item{}, dao.ErrItemNotFound
	}
	return it, err
}

func (ir *InventoryRepository) List(ctx context.Context, limit, offset int) ([]dao.Item, error) {
	rows, err := ir.db.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.Item, error) { return scanItem(row) })
	if err != nil {
		return nil, fmt.Errorf("failed to scan inventory items: %w", err)
	}
	return items, nil
}

func (ir *InventoryRepository) Get(ctx context.Context, id int64) (dao.Item, error) {
	it, err := scanItem(ir.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil && !errors.Is(err, dao.ErrItemNotFound) {
		return dao.Item{}, fmt.Errorf("failed to get inventory item %d: %w", id, err)
	}
	return it, err
}

func (ir *InventoryRepository) Create(ctx context.Context, item dao.Item) (dao.Item, error) {
	it, err := scanItem(ir.db.QueryRow(ctx, `
		INSERT INTO inventory_items (name, description, quantity, price)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING `+itemColumns,
		item.Name, item.Description, item.Quantity, item.Price,
	))
	if err != nil {
		return dao.Item{}, fmt.Errorf("failed to insert inventory item: %w", err)
	}
	return it, nil
}

func (ir *InventoryRepository) Update(ctx context.Context, id int64, p dao.ItemPatch) (dao.Item, error) {
	it, err := scanItem(ir.db.QueryRow(ctx, `
		UPDATE inventory_items SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			quantity    = COALESCE($4, quantity),
			price       = COALESCE($5, price),
			updated_at  = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, p.Name, p.Description, p.Quantity, p.Price,
	))
	if err != nil && !errors.Is(err, dao.ErrItemNotFound) {
		return dao.Item{}, fmt.Errorf("failed to update inventory item %d: %w", id, err)
	}
	return it, err
}

func (ir *InventoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := ir.db.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return dao.ErrItemReserved
	}
	if err != nil {
		return fmt.Errorf("failed to delete inventory item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return dao.ErrItemNotFound
	}
	return nil
}

func (ir *InventoryRepository) SetQuantity(ctx context.Context, id int64, quantity int) (dao.Item, error) {
	it, err := scanItem(ir.db.QueryRow(ctx, `
		UPDATE inventory_items SET quantity = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, quantity,
	))
	if err != nil && !errors.Is(err, dao.ErrItemNotFound) {
		return dao.Item{}, fmt.Errorf("failed to set quantity of inventory item %d: %w", id, err)
	}
	return it, err
}

// Reserve holds stock for every line or for none. The requested rows are
// locked in id order for the whole check-and-decrement, so concurrent orders
// serialise on shared items instead of racing.
func (ir *InventoryRepository) Reserve(ctx context.Context, orderID int64, lines []dao.ReservationLine) (dao.Reservation, error) {
	var res dao.Reservation
	err := pgx.BeginFunc(ctx, ir.db, func(tx pgx.Tx) error {
		// Serialise redeliveries of the same order.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, orderID); err != nil {
			return fmt.Errorf("lock order %d: %w", orderID, err)
		}

		existing, err := reservedLines(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			res = dao.Reservation{Reserved: true, Replayed: true, Lines: existing}
			return nil
		}

		merged := MergeLines(lines)
		ids := make([]int64, 0, len(merged))
		for _, l := range merged {
			if id, err := strconv.ParseInt(l.ItemID, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}

		stock, err := lockStock(ctx, tx, ids)
		if err != nil {
			return err
		}

		res = dao.Reservation{Lines: merged, Report: BuildReport(merged, stock)}
		for _, a := range res.Report {
			if !a.Available {
				return nil
			}
		}

		byID := make([]stockLine, 0, len(merged))
		for _, l := range merged {
			id, _ := strconv.ParseInt(l.ItemID, 10, 64)
			byID = append(byID, stockLine{id: id, qty: l.Quantity})
		}
		sort.Slice(byID, func(i, j int) bool { return byID[i].id < byID[j].id })

		for _, l := range byID {
			tag, err := tx.Exec(ctx, `
				UPDATE inventory_items
				SET quantity = quantity - $1, updated_at = now()
				WHERE id = $2 AND quantity >= $1`,
				l.qty, l.id,
			)
			if err != nil {
				return fmt.Errorf("decrement item %d: %w", l.id, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("item %d: %w", l.id, dao.ErrStockChanged)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO inventory_reservations (order_id, item_id, quantity)
				VALUES ($1, $2, $3)`,
				orderID, l.id, l.qty,
			); err != nil {
				return fmt.Errorf("record reservation of item %d: %w", l.id, err)
			}
		}
		res.Reserved = true
		return nil
	})
	if err != nil {
		return dao.Reservation{}, fmt.Errorf("failed to reserve stock for order %d: %w", orderID, err)
	}
	return res, nil
}

type stockLine struct {
	id  int64
	qty int
}

func reservedLines(ctx context.Context, q db.Querier, orderID int64) ([]dao.ReservationLine, error) {
	rows, err := q.Query(ctx, `
		SELECT item_id, quantity FROM inventory_reservations
		WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("read reservations of order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (dao.ReservationLine, error) {
		var (
			id  int64
			qty int
		)
		err := row.Scan(&id, &qty)
		return dao.ReservationLine{ItemID: strconv.FormatInt(id, 10), Quantity: qty}, err
	})
}

func lockStock(ctx context.Context, q db.Querier, ids []int64) (map[string]int, error) {
	stock := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, quantity FROM inventory_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock inventory rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		stock[strconv.FormatInt(id, 10)] = qty
	}
	return stock, rows.Err()
}

// MergeLines sums the quantities of lines naming the same item ("1" and
// "01" are the same row), keeping first-seen order and spelling.
func MergeLines(lines []dao.ReservationLine) []dao.ReservationLine {
	out := make([]dao.ReservationLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		key := l.ItemID
		if id, err := strconv.ParseInt(l.ItemID, 10, 64); err == nil {
			key = strconv.FormatInt(id, 10)
		}
		if i, ok := index[key]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, l)
	}
	return out
}

// BuildReport checks each line against stock, keyed by canonical item id.
// Ids that are not integers, or have no row, are reported as not found.
func BuildReport(lines []dao.ReservationLine, stock map[string]int) []dao.Availability {
	report := make([]dao.Availability, 0, len(lines))
	for _, l := range lines {
		a := dao.Availability{ItemID: l.ItemID, RequestedQuantity: l.Quantity}
		id, err := strconv.ParseInt(l.ItemID, 10, 64)
		have, found := stock[strconv.FormatInt(id, 10)]
		switch {
		case err != nil || !found:
			a.Reason = events.ReasonItemNotFound
		case have < l.Quantity:
			a.CurrentStock = &have
			a.Reason = events.ReasonInsufficientStock
		default:
			a.CurrentStock = &have
			a.Available = true
		}
		report = append(report, a)
	}
	return report
}
