package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/printnow-backend/internal/modules/order"
)

// Ledger is the transactional store behind the payment engine: orders and
// their payment records.
type Ledger interface {
	// WithinTx runs fn in one transaction. Any error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// Order reads an order and its items without locking.
	Order(ctx context.Context, id int64) (*order.Order, error)

	PaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// SetPaymentStatus moves a payment from one status to another and reports
	// false when it was no longer in from.
	SetPaymentStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	// ExpireStale marks every pending online session past its deadline expired.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// LedgerTx is the set of operations available inside WithinTx.
type LedgerTx interface {
	// LockOrder reads the order row FOR UPDATE, serializing every payment
	// operation on that order until the transaction ends.
	LockOrder(ctx context.Context, orderID int64) (*order.Order, error)

	// PaymentForOrder returns nil, nil when the order has no payment record yet.
	PaymentForOrder(ctx context.Context, orderID int64) (*Payment, error)

	// UpsertPayment writes the order's payment record. A record that is
	// already successful keeps its method, status, amount and references
	// unless p is itself a success.
	UpsertPayment(ctx context.Context, p *Payment) (*Payment, error)

	MarkPaymentSuccess(ctx context.Context, id uuid.UUID, at time.Time) error

	SetOrderStatus(ctx context.Context, orderID int64, status order.OrderStatus) error

	// CompleteOrder sets status completed and the final total. completed_at is
	// only written the first time.
	CompleteOrder(ctx context.Context, orderID int64, finalTotal int64, at time.Time) error
}
