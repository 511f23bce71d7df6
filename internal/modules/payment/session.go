package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/georgemunganga/printnow-backend/internal/modules/order"
	"github.com/georgemunganga/printnow-backend/internal/modules/ordercode"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

func (s *service) CreateSession(ctx context.Context, customerID int64, req CreateSessionRequest) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.CreateSession", trace.WithAttributes(attribute.Int64("order.id", req.OrderID)))
	defer span.End()

	if req.OrderID <= 0 {
		return nil, apperr.Validationf("order id is required")
	}
	if req.PayType == "" {
		req.PayType = PayFull
	}
	if req.PayType != PayFull && req.PayType != PayDeposit {
		return nil, apperr.Validationf("invalid pay type %q", req.PayType)
	}

	o, err := s.ledger.Order(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, apperr.NotFoundf("order %d not found", req.OrderID)
	}
	if err := payable(o); err != nil {
		return nil, err
	}

	amount := o.TotalAmount
	if req.PayType == PayDeposit {
		amount = s.opts.Policy.AmountDue(o.TotalAmount)
	}
	prefix := ordercode.PrefixDoc
	if len(o.Items) > 0 {
		prefix = ordercode.PrefixFor(string(o.Items[0].PrintType))
	}

	qr, err := s.gateway.CreateQR(ctx, QRRequest{
		OrderID:   o.ID,
		Reference: ordercode.EncodeTyped(prefix, o.ID),
		Amount:    amount,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("payment: create qr for order %d: %w", o.ID, err)
	}

	var saved *Payment
	err = s.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		locked, err := tx.LockOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := payable(locked); err != nil {
			return err
		}
		existing, err := tx.PaymentForOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == StatusSuccess {
			return apperr.Conflictf("order %s is already paid", locked.Code)
		}

		expires := s.now().Add(s.opts.SessionTTL)
		saved, err = tx.UpsertPayment(ctx, &Payment{
			OrderID:     o.ID,
			Method:      MethodOnline,
			Status:      StatusPending,
			Amount:      amount,
			Currency:    s.opts.Currency,
			ProviderRef: qr.ProviderRef,
			QRImageURL:  qr.ImageURL,
			ExpiresAt:   &expires,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.ID == uuid.Nil {
		return nil, ErrMissingPaymentID
	}
	s.log.InfoContext(ctx, "payment session created",
		"order_id", o.ID, "payment_id", saved.ID, "pay_type", req.PayType, "amount", amount, "provider_ref", saved.ProviderRef)
	return saved, nil
}

func payable(o *order.Order) error {
	if o.Status == order.StatusCancelled || o.Status == order.StatusCompleted {
		return apperr.Conflictf("order %s is %s", o.Code, o.Status)
	}
	return nil
}

func (s *service) SessionStatus(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.SessionStatus")
	defer span.End()

	p, err := s.ledger.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.expired(s.now()) {
		return p, nil
	}
	ok, err := s.ledger.SetPaymentStatus(ctx, p.ID, StatusPending, StatusExpired)
	if err != nil {
		return nil, err
	}
	if !ok {
		// settled or cancelled concurrently
		return s.ledger.PaymentByID(ctx, paymentID)
	}
	p.Status = StatusExpired
	return p, nil
}

func (s *service) CancelSession(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.CancelSession")
	defer span.End()

	p, err := s.ledger.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Method != MethodOnline || p.Status != StatusPending {
		return p, nil
	}
	ok, err := s.ledger.SetPaymentStatus(ctx, p.ID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.ledger.PaymentByID(ctx, paymentID)
	}
	p.Status = StatusCancelled
	s.log.InfoContext(ctx, "payment session cancelled", "payment_id", p.ID, "order_id", p.OrderID)
	return p, nil
}

func (s *service) SimulateIPN(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.SimulateIPN")
	defer span.End()

	p, err := s.ledger.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Status == StatusSuccess:
		return p, nil
	case p.Status == StatusCancelled:
		return nil, apperr.Conflictf("payment %s was cancelled", p.ID)
	case p.Method != MethodOnline:
		return nil, apperr.Conflictf("payment %s is not an online session", p.ID)
	}

	res, err := s.settle(ctx, p.OrderID, p.Amount, p.ProviderRef)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFoundf("order %d not found", p.OrderID)
		}
		return nil, err
	}
	return res.Payment, nil
}

func (s *service) ExpireStale(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "payment.ExpireStale")
	defer span.End()

	n, err := s.ledger.ExpireStale(ctx, s.now())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "payment sessions expired", "count", n)
	}
	return n, nil
}
