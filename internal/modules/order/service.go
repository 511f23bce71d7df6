package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/georgemunganga/printnow-backend/internal/modules/catalog"
	"github.com/georgemunganga/printnow-backend/internal/modules/idempotency"
	"github.com/georgemunganga/printnow-backend/internal/modules/ordercode"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

const (
	maxItems       = 50
	maxNoteLen     = 1000
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

// Service defines the order management business logic. Every customer-facing
// method is scoped to the calling customer; other customers' orders are reported
// as not found.
type Service interface {
	// PlaceOrder prices the cart and persists the order atomically. A non-empty
	// idemKey seen recently for the same customer returns the earlier order and
	// replayed=true instead of creating another one.
	PlaceOrder(ctx context.Context, customerID int64, idemKey string, req PlaceOrderRequest) (o *Order, replayed bool, err error)

	GetOrder(ctx context.Context, customerID, id int64) (*Order, error)

	// GetOrderByCode accepts either order code format.
	GetOrderByCode(ctx context.Context, customerID int64, code string) (*Order, error)

	ListCustomerOrders(ctx context.Context, customerID int64, f ListFilter) (*OrderPage, error)

	// CancelOrder cancels a pending order and records the reason in its note.
	CancelOrder(ctx context.Context, customerID int64, code, reason string) (*Order, error)

	// CanonicalCode resolves any accepted code to the #ORD code of an existing order.
	CanonicalCode(ctx context.Context, code string) (string, error)
}

// Pricer quotes a single cart item.
type Pricer interface {
	Quote(ctx context.Context, mode catalog.PricingMode, sel catalog.Selection) (*catalog.Quote, error)
}

type service struct {
	repo   Repository
	pricer Pricer
	idem   idempotency.Store
	log    *slog.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, pricer Pricer, idem idempotency.Store, log *slog.Logger) Service {
	return &service{repo: repo, pricer: pricer, idem: idem, log: log}
}

func (s *service) PlaceOrder(ctx context.Context, customerID int64, idemKey string, req PlaceOrderRequest) (*Order, bool, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, false, err
	}

	scopedKey := ""
	if idemKey = strings.TrimSpace(idemKey); idemKey != "" {
		scopedKey = fmt.Sprintf("%d:%s", customerID, idemKey)
		if o := s.replay(ctx, customerID, scopedKey); o != nil {
			return o, true, nil
		}
	}

	var items []*OrderItem
	var subtotal int64
	for i, ci := range req.Items {
		q, err := s.pricer.Quote(ctx, ci.PricingMode, catalog.Selection{
			PaperSizeID: ci.PaperSizeID,
			ColorModeID: ci.ColorModeID,
			SideID:      ci.SideID,
			Pages:       ci.Pages,
			Quantity:    ci.Quantity,
		})
		if err != nil {
			return nil, false, fmt.Errorf("item %d: %w", i+1, err)
		}
		subtotal += q.LineTotal
		items = append(items, &OrderItem{
			PrintType:    ci.PrintType,
			PricingMode:  ci.PricingMode,
			PaperSizeID:  ci.PaperSizeID,
			ColorModeID:  ci.ColorModeID,
			SideID:       ci.SideID,
			Pages:        ci.Pages,
			Quantity:     ci.Quantity,
			UnitPrice:    q.UnitPrice,
			LineTotal:    q.LineTotal,
			ExtraOptions: ci.ExtraOptions,
			Note:         strings.TrimSpace(ci.Note),
		})
	}

	o := &Order{
		CustomerID:  customerID,
		Status:      StatusPending,
		Subtotal:    subtotal,
		TotalAmount: subtotal,
		Note:        strings.TrimSpace(req.Note),
		Items:       items,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, false, fmt.Errorf("failed to persist order: %w", err)
	}
	o.Code = ordercode.Encode(o.ID, o.CreatedAt)

	if scopedKey != "" {
		if err := s.idem.Remember(ctx, scopedKey, o.ID); err != nil {
			s.log.WarnContext(ctx, "idempotency remember failed", "order_id", o.ID, "error", err)
		}
	}
	s.log.InfoContext(ctx, "order placed", "order_id", o.ID, "code", o.Code, "total", o.TotalAmount)
	return o, false, nil
}

func (s *service) replay(ctx context.Context, customerID int64, key string) *Order {
	id, ok, err := s.idem.Lookup(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "idempotency lookup failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil || o.CustomerID != customerID {
		return nil
	}
	return o
}

func validatePlaceOrder(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return apperr.Validationf("order must contain at least one item")
	}
	if len(req.Items) > maxItems {
		return apperr.Validationf("order may contain at most %d items", maxItems)
	}
	if utf8.RuneCountInString(req.Note) > maxNoteLen {
		return apperr.Validationf("note exceeds %d characters", maxNoteLen)
	}
	for i, ci := range req.Items {
		switch {
		case !ci.PrintType.Valid():
			return apperr.Validationf("item %d: unknown print_type %q", i+1, ci.PrintType)
		case !ci.PricingMode.Valid():
			return apperr.Validationf("item %d: unknown pricing_mode %q", i+1, ci.PricingMode)
		case ci.PaperSizeID <= 0 || ci.ColorModeID <= 0 || ci.SideID <= 0:
			return apperr.Validationf("item %d: paper_size_id, color_mode_id and side_id are required", i+1)
		case ci.Pages < 1 || ci.Quantity < 1:
			return apperr.Validationf("item %d: pages and quantity must be at least 1", i+1)
		case utf8.RuneCountInString(ci.Note) > maxNoteLen:
			return apperr.Validationf("item %d: note exceeds %d characters", i+1, maxNoteLen)
		}
		if err := ci.ExtraOptions.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, customerID, id int64) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, apperr.NotFoundf("order %d not found", id)
	}
	return o, nil
}

func (s *service) GetOrderByCode(ctx context.Context, customerID int64, code string) (*Order, error) {
	id, ok := ordercode.Decode(code)
	if !ok {
		return nil, apperr.NotFoundf("order %q not found", code)
	}
	return s.GetOrder(ctx, customerID, id)
}

// statusGroup maps a list filter to the stored status values it covers.
func statusGroup(filter string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", "all":
		return nil, nil
	case "processing":
		return []string{string(StatusProcessing), string(StatusReady), string(StatusPaid)}, nil
	}
	st, err := ParseStatus(filter)
	if err != nil {
		return nil, apperr.Validationf("%v", err)
	}
	return storedSpellings(st), nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID int64, f ListFilter) (*OrderPage, error) {
	statuses, err := statusGroup(f.Status)
	if err != nil {
		return nil, err
	}
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = defaultPage
	}
	if size < 1 {
		size = defaultPerPage
	}
	if size > maxPerPage {
		size = maxPerPage
	}
	orders, total, err := s.repo.ListOrdersByCustomer(ctx, customerID, statuses, size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *service) CancelOrder(ctx context.Context, customerID int64, code, reason string) (*Order, error) {
	o, err := s.GetOrderByCode(ctx, customerID, code)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, apperr.Conflictf("order %s cannot be cancelled while %s", o.Code, o.Status)
	}

	note := appendNote(o.Note, cancelNote(reason))
	ok, err := s.repo.CancelOrder(ctx, o.ID, customerID, storedSpellings(StatusPending), note)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflictf("order %s is no longer pending", o.Code)
	}
	o.Status = StatusCancelled
	o.Note = note
	s.log.InfoContext(ctx, "order cancelled", "order_id", o.ID, "code", o.Code)
	return o, nil
}

func (s *service) CanonicalCode(ctx context.Context, code string) (string, error) {
	id, ok := ordercode.Decode(code)
	if !ok {
		return "", apperr.NotFoundf("order %q not found", code)
	}
	o, err := s.repo.GetOrderByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.NotFoundf("order %q not found", code)
	}
	if err != nil {
		return "", err
	}
	return ordercode.Encode(o.ID, o.CreatedAt), nil
}

// cancelNote is empty when no reason was given, leaving the order note as it was.
func cancelNote(reason string) string {
	if reason = strings.TrimSpace(reason); reason == "" {
		return ""
	}
	return "User cancel: " + reason
}

func appendNote(note, extra string) string {
	if extra == "" {
		return note
	}
	if note == "" {
		return extra
	}
	return note + " | " + extra
}
