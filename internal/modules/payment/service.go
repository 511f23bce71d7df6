package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/georgemunganga/printnow-backend/internal/modules/notify"
	"github.com/georgemunganga/printnow-backend/internal/modules/order"
	"github.com/georgemunganga/printnow-backend/internal/modules/ordercode"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

var tracer = otel.Tracer("github.com/georgemunganga/printnow-backend/internal/modules/payment")

// Service is the payment confirmation engine. Every operation that changes an
// order or its payment runs in one ledger transaction holding the order row
// lock; paid events are published only after that transaction commits.
type Service interface {
	// ConfirmStorePayment records the customer's intent to pay cash at the
	// store and moves a pending order to processing. Orders above the deposit
	// threshold only owe the deposit.
	ConfirmStorePayment(ctx context.Context, customerID, orderID int64) (*Payment, error)

	// ConfirmCashReceived is the staff counterpart: the cash was handed over.
	ConfirmCashReceived(ctx context.Context, orderID int64) (*Payment, error)

	// HandleWebhook applies a bank transfer notification. Notifications that
	// cannot be matched to an order are ignored, not failed.
	HandleWebhook(ctx context.Context, n Notification) (Outcome, error)

	// MarkPaid settles an order by explicit code, skipping text extraction.
	MarkPaid(ctx context.Context, code string, amount int64) (*Settlement, error)

	CreateSession(ctx context.Context, customerID int64, req CreateSessionRequest) (*Payment, error)
	// SessionStatus returns the payment, expiring it first if its deadline passed.
	SessionStatus(ctx context.Context, paymentID uuid.UUID) (*Payment, error)
	CancelSession(ctx context.Context, paymentID uuid.UUID) (*Payment, error)
	// SimulateIPN plays the provider's instant payment notification for a session.
	SimulateIPN(ctx context.Context, paymentID uuid.UUID) (*Payment, error)
	ExpireStale(ctx context.Context) (int64, error)
}

// Publisher delivers events to clients watching an order code.
type Publisher interface {
	Publish(code string, ev notify.Event) int
}

// Options are the engine's tunables.
type Options struct {
	Policy     DepositPolicy
	Currency   string
	SessionTTL time.Duration
}

type service struct {
	ledger  Ledger
	gateway Gateway
	pub     Publisher
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

func NewService(ledger Ledger, gateway Gateway, pub Publisher, opts Options, log *slog.Logger) Service {
	return &service{ledger: ledger, gateway: gateway, pub: pub, opts: opts, log: log, now: time.Now}
}

func (s *service) ConfirmStorePayment(ctx context.Context, customerID, orderID int64) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.ConfirmStorePayment", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if orderID <= 0 {
		return nil, apperr.Validationf("order id is required")
	}

	var saved *Payment
	err := s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.CustomerID != customerID {
			return apperr.NotFoundf("order %d not found", orderID)
		}
		if o.Status == order.StatusCancelled || o.Status == order.StatusCompleted {
			return apperr.Conflictf("order %s is %s", o.Code, o.Status)
		}

		saved, err = tx.UpsertPayment(ctx, &Payment{
			OrderID:  o.ID,
			Method:   MethodCash,
			Status:   StatusPending,
			Amount:   s.opts.Policy.AmountDue(o.TotalAmount),
			Currency: s.opts.Currency,
		})
		if err != nil {
			return err
		}
		if o.Status.CanTransition(order.StatusProcessing) {
			return tx.SetOrderStatus(ctx, o.ID, order.StatusProcessing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.ID == uuid.Nil {
		s.log.ErrorContext(ctx, "store payment saved without id", "order_id", orderID)
		return nil, ErrMissingPaymentID
	}
	s.log.InfoContext(ctx, "store payment confirmed", "order_id", orderID, "payment_id", saved.ID, "amount", saved.Amount)
	return saved, nil
}

func (s *service) ConfirmCashReceived(ctx context.Context, orderID int64) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.ConfirmCashReceived", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var p *Payment
	err := s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == order.StatusCancelled {
			return apperr.Conflictf("order %s is cancelled", o.Code)
		}
		if p, err = tx.PaymentForOrder(ctx, orderID); err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFoundf("order %s has no payment", o.Code)
		}
		if p.Status == StatusSuccess {
			return nil
		}
		if p.Method != MethodCash {
			return apperr.Conflictf("order %s is awaiting an online payment", o.Code)
		}
		now := s.now()
		if err := tx.MarkPaymentSuccess(ctx, p.ID, now); err != nil {
			return err
		}
		p.Status, p.PaidAt = StatusSuccess, &now
		if o.Status.CanTransition(order.StatusProcessing) {
			return tx.SetOrderStatus(ctx, o.ID, order.StatusProcessing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "cash received", "order_id", orderID, "payment_id", p.ID, "amount", p.Amount)
	return p, nil
}

func (s *service) HandleWebhook(ctx context.Context, n Notification) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "payment.HandleWebhook")
	defer span.End()

	code, ok := ordercode.Extract(n.Description, n.Reference)
	if !ok && n.OverrideCode != "" {
		code, ok = ordercode.Canonical(n.OverrideCode)
	}
	if !ok {
		s.log.InfoContext(ctx, "webhook ignored: no order code", "description", n.Description, "reference", n.Reference)
		return Outcome{Ignored: true, Reason: "no order code"}, nil
	}
	if n.Amount <= 0 {
		s.log.InfoContext(ctx, "webhook ignored: no amount", "code", code, "amount", n.Amount)
		return Outcome{Ignored: true, Reason: "no amount", Code: code}, nil
	}
	id, ok := ordercode.Decode(code)
	if !ok {
		return Outcome{Ignored: true, Reason: "unresolvable order code", Code: code}, nil
	}
	span.SetAttributes(attribute.Int64("order.id", id), attribute.String("order.code", code))

	res, err := s.settle(ctx, id, n.Amount, n.Reference)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.log.WarnContext(ctx, "webhook ignored: unknown order", "code", code, "amount", n.Amount)
		return Outcome{Ignored: true, Reason: "unknown order", Code: code}, nil
	case errors.Is(err, apperr.ErrConflict):
		s.log.WarnContext(ctx, "webhook ignored: payment for cancelled order", "code", code, "amount", n.Amount)
		return Outcome{Ignored: true, Reason: "order cancelled", Code: code}, nil
	case err != nil:
		span.RecordError(err)
		return Outcome{}, err
	}
	return Outcome{Code: res.Code}, nil
}

func (s *service) MarkPaid(ctx context.Context, code string, amount int64) (*Settlement, error) {
	ctx, span := tracer.Start(ctx, "payment.MarkPaid", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	if amount <= 0 {
		return nil, apperr.Validationf("paid amount must be greater than 0")
	}
	id, ok := ordercode.Decode(code)
	if !ok {
		return nil, apperr.Conflictf("cannot resolve order code %q", code)
	}
	return s.settle(ctx, id, amount, "")
}

// settle applies money that has arrived for an order: the payment becomes an
// online success, the order completes with its reconciled total, and a paid
// event goes out once the transaction has committed.
func (s *service) settle(ctx context.Context, orderID, amount int64, providerRef string) (*Settlement, error) {
	var res Settlement
	err := s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == order.StatusCancelled {
			return apperr.Conflictf("order %s is cancelled", o.Code)
		}

		now := s.now()
		p, err := tx.UpsertPayment(ctx, &Payment{
			OrderID:     o.ID,
			Method:      MethodOnline,
			Status:      StatusSuccess,
			Amount:      amount,
			Currency:    s.opts.Currency,
			ProviderRef: providerRef,
			PaidAt:      &now,
		})
		if err != nil {
			return err
		}

		final := reconcileTotal(o.TotalAmount, amount)
		if err := tx.CompleteOrder(ctx, o.ID, final, now); err != nil {
			return err
		}
		res = Settlement{
			OrderID:    o.ID,
			Code:       ordercode.Encode(o.ID, o.CreatedAt),
			PaidAmount: amount,
			FinalTotal: final,
			Payment:    p,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	delivered := s.pub.Publish(res.Code, notify.Event{Type: notify.EventPaid, PaidAmount: amount})
	s.log.InfoContext(ctx, "order paid",
		"order_id", res.OrderID, "code", res.Code, "paid", amount, "total", res.FinalTotal, "subscribers", delivered)
	return &res, nil
}
