package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/printnow-backend/internal/modules/order"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

const paymentColumns = `id, order_id, method, status, amount, currency, provider_ref, qr_image_url, expires_at, paid_at, created_at, updated_at`

// keepSuccess is true when the stored record is a success and the incoming write is not.
const keepSuccess = `payments.status = 'success' AND EXCLUDED.status <> 'success'`

const upsertSQL = `
	INSERT INTO payments (id, order_id, method, status, amount, currency, provider_ref, qr_image_url, expires_at, paid_at)
	VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),$9,$10)
	ON CONFLICT (order_id) DO UPDATE SET
	  method       = CASE WHEN ` + keepSuccess + ` THEN payments.method ELSE EXCLUDED.method END,
	  status       = CASE WHEN ` + keepSuccess + ` THEN payments.status ELSE EXCLUDED.status END,
	  amount       = CASE WHEN ` + keepSuccess + ` THEN payments.amount ELSE EXCLUDED.amount END,
	  currency     = CASE WHEN ` + keepSuccess + ` THEN payments.currency ELSE EXCLUDED.currency END,
	  provider_ref = CASE WHEN ` + keepSuccess + ` THEN payments.provider_ref ELSE COALESCE(EXCLUDED.provider_ref, payments.provider_ref) END,
	  qr_image_url = CASE WHEN ` + keepSuccess + ` THEN payments.qr_image_url ELSE COALESCE(EXCLUDED.qr_image_url, payments.qr_image_url) END,
	  expires_at   = CASE WHEN ` + keepSuccess + ` THEN payments.expires_at ELSE EXCLUDED.expires_at END,
	  paid_at      = CASE WHEN payments.status = 'success' THEN COALESCE(payments.paid_at, EXCLUDED.paid_at) ELSE EXCLUDED.paid_at END,
	  updated_at   = NOW()
	RETURNING ` + paymentColumns

type postgresLedger struct {
	db     *sql.DB
	orders order.Repository
}

// NewPostgresLedger stores payments next to the orders table so both change in one transaction.
func NewPostgresLedger(db *sql.DB) Ledger {
	return &postgresLedger{db: db, orders: order.NewPostgresRepository(db)}
}

func (l *postgresLedger) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("payment: begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("payment: commit: %w", err)
	}
	return nil
}

func (l *postgresLedger) Order(ctx context.Context, id int64) (*order.Order, error) {
	return l.orders.GetOrderByID(ctx, id)
}

func (l *postgresLedger) PaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := scanPayment(l.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("payment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("payment: select: %w", err)
	}
	return p, nil
}

func (l *postgresLedger) SetPaymentStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE payments SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("payment: set status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("payment: set status: %w", err)
	}
	return n == 1, nil
}

func (l *postgresLedger) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE payments SET status='expired', updated_at=$1
		WHERE method='online' AND status='pending' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("payment: expire sessions: %w", err)
	}
	return res.RowsAffected()
}

type postgresTx struct{ tx *sql.Tx }

func (t *postgresTx) LockOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	o, err := order.ScanOrder(t.tx.QueryRowContext(ctx,
		`SELECT `+order.Columns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("payment: lock order %d: %w", orderID, err)
	}
	return o, nil
}

func (t *postgresTx) PaymentForOrder(ctx context.Context, orderID int64) (*Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id=$1`, orderID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("payment: select for order %d: %w", orderID, err)
	}
	return p, nil
}

func (t *postgresTx) UpsertPayment(ctx context.Context, p *Payment) (*Payment, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	saved, err := scanPayment(t.tx.QueryRowContext(ctx, upsertSQL,
		id, p.OrderID, p.Method, p.Status, p.Amount, p.Currency,
		p.ProviderRef, p.QRImageURL, p.ExpiresAt, p.PaidAt).Scan)
	if err != nil {
		return nil, fmt.Errorf("payment: upsert for order %d: %w", p.OrderID, err)
	}
	return saved, nil
}

func (t *postgresTx) MarkPaymentSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE payments SET status='success', paid_at=COALESCE(paid_at, $1), updated_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return fmt.Errorf("payment: mark success: %w", err)
	}
	return nil
}

func (t *postgresTx) SetOrderStatus(ctx context.Context, orderID int64, status order.OrderStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, orderID)
	if err != nil {
		return fmt.Errorf("payment: set order %d status: %w", orderID, err)
	}
	return nil
}

func (t *postgresTx) CompleteOrder(ctx context.Context, orderID int64, finalTotal int64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE orders
		SET status=$1, total_amount=$2, completed_at=COALESCE(completed_at, $3), updated_at=$3
		WHERE id=$4`,
		order.StatusCompleted, finalTotal, at, orderID)
	if err != nil {
		return fmt.Errorf("payment: complete order %d: %w", orderID, err)
	}
	return nil
}

func scanPayment(scan func(...interface{}) error) (*Payment, error) {
	p := &Payment{}
	var providerRef, qr sql.NullString
	var expiresAt, paidAt sql.NullTime
	err := scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &p.Currency,
		&providerRef, &qr, &expiresAt, &paidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ProviderRef = providerRef.String
	p.QRImageURL = qr.String
	if expiresAt.Valid {
		t := expiresAt.Time
		p.ExpiresAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return p, nil
}
