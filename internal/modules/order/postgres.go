package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/georgemunganga/printnow-backend/internal/modules/ordercode"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

// Columns is the select list ScanOrder expects.
const Columns = `id, customer_id, status, subtotal, discount, total_amount, note, created_at, updated_at, completed_at`

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// CreateOrder inserts the order and all its items inside a single transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, status, subtotal, discount, total_amount, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		o.CustomerID, o.Status, o.Subtotal, o.Discount, o.TotalAmount, o.Note,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items
			  (order_id, print_type, pricing_mode, paper_size_id, color_mode_id, side_id,
			   pages, quantity, unit_price, line_total, extra_options, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			RETURNING id, created_at`,
			o.ID, item.PrintType, item.PricingMode, item.PaperSizeID, item.ColorModeID, item.SideID,
			item.Pages, item.Quantity, item.UnitPrice, item.LineTotal, item.ExtraOptions, item.Note,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	o.Code = ordercode.Encode(o.ID, o.CreatedAt)
	return nil
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	o, err := ScanOrder(r.db.QueryRowContext(ctx, `SELECT `+Columns+` FROM orders WHERE id=$1`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("order %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListOrdersByCustomer(ctx context.Context, customerID int64, statuses []string, limit, offset int) ([]*Order, int, error) {
	query := `SELECT ` + Columns + `, COUNT(*) OVER() FROM orders WHERE customer_id=$1`
	args := []interface{}{customerID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(statuses))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	total := 0
	for rows.Next() {
		o, err := ScanOrder(func(dest ...interface{}) error {
			return rows.Scan(append(dest, &total)...)
		})
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

func (r *postgresRepo) CancelOrder(ctx context.Context, id, customerID int64, from []string, note string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status=$1, note=$2, updated_at=$3
		WHERE id=$4 AND customer_id=$5 AND status = ANY($6)`,
		StatusCancelled, note, time.Now(), id, customerID, pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return n == 1, nil
}

// ScanOrder reads a row selected with Columns. The legacy "new" status is
// returned as pending.
func ScanOrder(scan func(...interface{}) error) (*Order, error) {
	o := &Order{}
	var status string
	var note sql.NullString
	var completedAt sql.NullTime
	err := scan(&o.ID, &o.CustomerID, &status, &o.Subtotal, &o.Discount, &o.TotalAmount,
		&note, &o.CreatedAt, &o.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if o.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	o.Note = note.String
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	o.Code = ordercode.Encode(o.ID, o.CreatedAt)
	return o, nil
}

func (r *postgresRepo) listItems(ctx context.Context, orderID int64) ([]*OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, print_type, pricing_mode, paper_size_id, color_mode_id, side_id,
		       pages, quantity, unit_price, line_total, extra_options, note, created_at
		FROM order_items WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order_items: %w", err)
	}
	defer rows.Close()
	var items []*OrderItem
	for rows.Next() {
		item := &OrderItem{}
		var note sql.NullString
		if err := rows.Scan(&item.ID, &item.OrderID, &item.PrintType, &item.PricingMode,
			&item.PaperSizeID, &item.ColorModeID, &item.SideID,
			&item.Pages, &item.Quantity, &item.UnitPrice, &item.LineTotal,
			&item.ExtraOptions, &note, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		item.Note = note.String
		items = append(items, item)
	}
	return items, rows.Err()
}
