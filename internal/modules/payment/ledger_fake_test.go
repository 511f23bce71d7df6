package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/printnow-backend/internal/modules/notify"
	"github.com/georgemunganga/printnow-backend/internal/modules/order"
	"github.com/georgemunganga/printnow-backend/internal/modules/ordercode"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

var errBoom = errors.New("storage unavailable")

// memLedger is an in-memory Ledger. A failing transaction restores the
// snapshot taken when it began, like a database rollback.
type memLedger struct {
	mu       sync.Mutex
	orders   map[int64]order.Order
	payments map[int64]Payment // by order id
	failOn   string            // tx operation that returns errBoom
	nilIDs   bool              // upserts come back without an id
	commits  int
}

func newMemLedger() *memLedger {
	return &memLedger{orders: map[int64]order.Order{}, payments: map[int64]Payment{}}
}

func (l *memLedger) addOrder(o order.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o.Code = ordercode.Encode(o.ID, o.CreatedAt)
	l.orders[o.ID] = o
}

func (l *memLedger) order(id int64) order.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orders[id]
}

func (l *memLedger) payment(orderID int64) (Payment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[orderID]
	return p, ok
}

func (l *memLedger) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	orders := make(map[int64]order.Order, len(l.orders))
	for k, v := range l.orders {
		orders[k] = v
	}
	payments := make(map[int64]Payment, len(l.payments))
	for k, v := range l.payments {
		payments[k] = v
	}
	if err := fn(&memTx{l: l}); err != nil {
		l.orders, l.payments = orders, payments
		return err
	}
	l.commits++
	return nil
}

func (l *memLedger) Order(ctx context.Context, id int64) (*order.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, apperr.NotFoundf("order %d not found", id)
	}
	return &o, nil
}

func (l *memLedger) PaymentByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.payments {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperr.NotFoundf("payment %s not found", id)
}

func (l *memLedger) SetPaymentStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, p := range l.payments {
		if p.ID == id && p.Status == from {
			p.Status = to
			l.payments[k] = p
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for k, p := range l.payments {
		if p.expired(now) {
			p.Status = StatusExpired
			l.payments[k] = p
			n++
		}
	}
	return n, nil
}

type memTx struct{ l *memLedger }

func (t *memTx) fail(op string) error {
	if t.l.failOn == op {
		return errBoom
	}
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	if err := t.fail("LockOrder"); err != nil {
		return nil, err
	}
	o, ok := t.l.orders[orderID]
	if !ok {
		return nil, apperr.NotFoundf("order %d not found", orderID)
	}
	return &o, nil
}

func (t *memTx) PaymentForOrder(ctx context.Context, orderID int64) (*Payment, error) {
	if err := t.fail("PaymentForOrder"); err != nil {
		return nil, err
	}
	p, ok := t.l.payments[orderID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpsertPayment mirrors the never-downgrade rules of the SQL upsert.
func (t *memTx) UpsertPayment(ctx context.Context, in *Payment) (*Payment, error) {
	if err := t.fail("UpsertPayment"); err != nil {
		return nil, err
	}
	cur, ok := t.l.payments[in.OrderID]
	switch {
	case !ok:
		cur = *in
		cur.ID = uuid.New()
	case cur.Status == StatusSuccess && in.Status != StatusSuccess:
	default:
		paidAt := in.PaidAt
		if cur.Status == StatusSuccess && cur.PaidAt != nil {
			paidAt = cur.PaidAt
		}
		cur.Method, cur.Status, cur.Amount, cur.Currency = in.Method, in.Status, in.Amount, in.Currency
		if in.ProviderRef != "" {
			cur.ProviderRef = in.ProviderRef
		}
		if in.QRImageURL != "" {
			cur.QRImageURL = in.QRImageURL
		}
		cur.ExpiresAt, cur.PaidAt = in.ExpiresAt, paidAt
	}
	t.l.payments[in.OrderID] = cur
	out := cur
	if t.l.nilIDs {
		out.ID = uuid.Nil
	}
	return &out, nil
}

func (t *memTx) MarkPaymentSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := t.fail("MarkPaymentSuccess"); err != nil {
		return err
	}
	for k, p := range t.l.payments {
		if p.ID == id {
			p.Status = StatusSuccess
			if p.PaidAt == nil {
				p.PaidAt = &at
			}
			t.l.payments[k] = p
		}
	}
	return nil
}

func (t *memTx) SetOrderStatus(ctx context.Context, orderID int64, status order.OrderStatus) error {
	if err := t.fail("SetOrderStatus"); err != nil {
		return err
	}
	o := t.l.orders[orderID]
	o.Status = status
	t.l.orders[orderID] = o
	return nil
}

func (t *memTx) CompleteOrder(ctx context.Context, orderID int64, finalTotal int64, at time.Time) error {
	if err := t.fail("CompleteOrder"); err != nil {
		return err
	}
	o := t.l.orders[orderID]
	o.Status = order.StatusCompleted
	o.TotalAmount = finalTotal
	if o.CompletedAt == nil {
		o.CompletedAt = &at
	}
	t.l.orders[orderID] = o
	return nil
}

type published struct {
	code string
	ev   notify.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(code string, ev notify.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{code, ev})
	return 1
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type stubGateway struct {
	last QRRequest
	err  error
}

func (g *stubGateway) CreateQR(ctx context.Context, req QRRequest) (*QRSession, error) {
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &QRSession{ProviderRef: "VNP-TEST-0001", ImageURL: "https://qr.test/" + req.Reference}, nil
}
