package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printnow-backend/internal/modules/catalog"
	"github.com/georgemunganga/printnow-backend/internal/modules/idempotency"
	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
	"github.com/georgemunganga/printnow-backend/internal/pkg/telemetry"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) CreateOrder(ctx context.Context, o *Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockRepo) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepo) ListOrdersByCustomer(ctx context.Context, customerID int64, statuses []string, limit, offset int) ([]*Order, int, error) {
	args := m.Called(ctx, customerID, statuses, limit, offset)
	orders, _ := args.Get(0).([]*Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *mockRepo) CancelOrder(ctx context.Context, id, customerID int64, from []string, note string) (bool, error) {
	args := m.Called(ctx, id, customerID, from, note)
	return args.Bool(0), args.Error(1)
}

// flatPricer charges 1000 per page per copy, FIXED items 5000 each.
type flatPricer struct{}

func (flatPricer) Quote(_ context.Context, mode catalog.PricingMode, sel catalog.Selection) (*catalog.Quote, error) {
	unit := int64(1000 * sel.Pages)
	if mode == catalog.Fixed {
		unit = 5000
	}
	return &catalog.Quote{RuleID: 1, Mode: mode, UnitPrice: unit, LineTotal: unit * int64(sel.Quantity)}, nil
}

var created = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func assignID(id int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		o := args.Get(1).(*Order)
		o.ID = id
		o.CreatedAt = created
	}
}

func cart() PlaceOrderRequest {
	return PlaceOrderRequest{Items: []CartItem{
		{PrintType: PrintDocument, PricingMode: catalog.PerPage, PaperSizeID: 1, ColorModeID: 1, SideID: 1, Pages: 30, Quantity: 5,
			ExtraOptions: ExtraOptions{"binding": "staple"}},
		{PrintType: PrintBanner, PricingMode: catalog.Fixed, PaperSizeID: 3, ColorModeID: 2, SideID: 1, Pages: 1, Quantity: 1},
	}}
}

func newTestService(repo Repository) (Service, *idempotency.MemoryStore) {
	idem := idempotency.NewMemoryStore(2 * time.Minute)
	return NewService(repo, flatPricer{}, idem, telemetry.Discard()), idem
}

func TestPlaceOrderPricesItems(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateOrder", mock.Anything, mock.AnythingOfType("*order.Order")).Run(assignID(7)).Return(nil)
	svc, _ := newTestService(repo)

	o, replayed, err := svc.PlaceOrder(context.Background(), 3, "", cart())
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(155000), o.Subtotal)
	assert.Equal(t, int64(155000), o.TotalAmount)
	assert.Equal(t, o.Subtotal-o.Discount, o.TotalAmount)
	assert.Equal(t, "#ORD-2025-007", o.Code)
	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(30000), o.Items[0].UnitPrice)
	assert.Equal(t, int64(150000), o.Items[0].LineTotal)
	assert.Equal(t, o.Items[1].UnitPrice*int64(o.Items[1].Quantity), o.Items[1].LineTotal)
}

func TestPlaceOrderIdempotent(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateOrder", mock.Anything, mock.Anything).Run(assignID(7)).Return(nil).Once()
	svc, idem := newTestService(repo)

	first, _, err := svc.PlaceOrder(context.Background(), 3, "retry-1", cart())
	require.NoError(t, err)

	repo.On("GetOrderByID", mock.Anything, int64(7)).Return(first, nil)
	second, replayed, err := svc.PlaceOrder(context.Background(), 3, "retry-1", cart())
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	repo.AssertNumberOfCalls(t, "CreateOrder", 1)

	id, ok, _ := idem.Lookup(context.Background(), "3:retry-1")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestPlaceOrderKeyIsScopedPerCustomer(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateOrder", mock.Anything, mock.Anything).Run(assignID(7)).Return(nil).Once()
	repo.On("CreateOrder", mock.Anything, mock.Anything).Run(assignID(8)).Return(nil).Once()
	svc, _ := newTestService(repo)

	a, _, err := svc.PlaceOrder(context.Background(), 3, "same", cart())
	require.NoError(t, err)
	b, replayed, err := svc.PlaceOrder(context.Background(), 4, "same", cart())
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, a.ID, b.ID)
}

type brokenStore struct{}

func (brokenStore) Remember(context.Context, string, int64) error { return errors.New("redis down") }
func (brokenStore) Lookup(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("redis down")
}

func TestPlaceOrderSurvivesIdempotencyFailure(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateOrder", mock.Anything, mock.Anything).Run(assignID(9)).Return(nil)
	svc := NewService(repo, flatPricer{}, brokenStore{}, telemetry.Discard())

	o, replayed, err := svc.PlaceOrder(context.Background(), 3, "k", cart())
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(9), o.ID)
}

func TestPlaceOrderValidation(t *testing.T) {
	repo := new(mockRepo)
	svc, _ := newTestService(repo)

	bad := cart()
	bad.Items[0].ExtraOptions = ExtraOptions{"nested": map[string]any{}}
	for name, req := range map[string]PlaceOrderRequest{
		"empty":         {},
		"bad type":      {Items: []CartItem{{PrintType: "POSTER", PricingMode: catalog.PerPage, PaperSizeID: 1, ColorModeID: 1, SideID: 1, Pages: 1, Quantity: 1}}},
		"zero quantity": {Items: []CartItem{{PrintType: PrintPhoto, PricingMode: catalog.PerSheet, PaperSizeID: 1, ColorModeID: 1, SideID: 1, Pages: 1}}},
		"missing paper": {Items: []CartItem{{PrintType: PrintPhoto, PricingMode: catalog.PerSheet, ColorModeID: 1, SideID: 1, Pages: 1, Quantity: 1}}},
		"bad options":   bad,
	} {
		_, _, err := svc.PlaceOrder(context.Background(), 3, "", req)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
	repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestGetOrderHidesOtherCustomers(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetOrderByID", mock.Anything, int64(42)).Return(&Order{ID: 42, CustomerID: 3, CreatedAt: created}, nil)
	svc, _ := newTestService(repo)

	_, err := svc.GetOrder(context.Background(), 4, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	o, err := svc.GetOrderByCode(context.Background(), 3, "doc-000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)

	_, err = svc.GetOrderByCode(context.Background(), 3, "nonsense")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelOrder(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetOrderByID", mock.Anything, int64(7)).
		Return(&Order{ID: 7, CustomerID: 3, Status: StatusPending, Note: "A4 please", CreatedAt: created, Code: "#ORD-2025-007"}, nil)
	repo.On("CancelOrder", mock.Anything, int64(7), int64(3), []string{"pending", "new", "NEW"}, "A4 please | User cancel: wrong file").
		Return(true, nil)
	svc, _ := newTestService(repo)

	o, err := svc.CancelOrder(context.Background(), 3, "#ORD-2025-007", " wrong file ")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, "A4 please | User cancel: wrong file", o.Note)
	repo.AssertExpectations(t)
}

func TestCancelOrderWithoutReasonKeepsNote(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetOrderByID", mock.Anything, int64(7)).
		Return(&Order{ID: 7, CustomerID: 3, Status: StatusPending, Note: "A4 please", CreatedAt: created}, nil)
	repo.On("CancelOrder", mock.Anything, int64(7), int64(3), mock.Anything, "A4 please").Return(true, nil)
	svc, _ := newTestService(repo)

	o, err := svc.CancelOrder(context.Background(), 3, "ORD-2025-007", "   ")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, "A4 please", o.Note)
	repo.AssertExpectations(t)
}

func TestCancelOrderRejectsProcessing(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetOrderByID", mock.Anything, int64(7)).
		Return(&Order{ID: 7, CustomerID: 3, Status: StatusProcessing, CreatedAt: created}, nil)
	svc, _ := newTestService(repo)

	_, err := svc.CancelOrder(context.Background(), 3, "ORD-2025-007", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	repo.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrderLosesRace(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetOrderByID", mock.Anything, int64(7)).
		Return(&Order{ID: 7, CustomerID: 3, Status: StatusPending, CreatedAt: created}, nil)
	repo.On("CancelOrder", mock.Anything, int64(7), int64(3), mock.Anything, "").Return(false, nil)
	svc, _ := newTestService(repo)

	_, err := svc.CancelOrder(context.Background(), 3, "ORD-2025-007", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestListCustomerOrdersStatusGroups(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ListOrdersByCustomer", mock.Anything, int64(3), []string{"processing", "ready", "paid"}, 10, 0).
		Return([]*Order{{ID: 1}}, 1, nil)
	repo.On("ListOrdersByCustomer", mock.Anything, int64(3), []string{"pending", "new", "NEW"}, 100, 100).
		Return(nil, 0, nil)
	repo.On("ListOrdersByCustomer", mock.Anything, int64(3), []string(nil), 10, 0).
		Return(nil, 0, nil)
	svc, _ := newTestService(repo)

	p, err := svc.ListCustomerOrders(context.Background(), 3, ListFilter{Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Total)
	assert.Equal(t, 1, p.Page)

	p, err = svc.ListCustomerOrders(context.Background(), 3, ListFilter{Status: "new", Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, p.PageSize)
	assert.NotNil(t, p.Orders)

	_, err = svc.ListCustomerOrders(context.Background(), 3, ListFilter{Status: "all"})
	require.NoError(t, err)

	_, err = svc.ListCustomerOrders(context.Background(), 3, ListFilter{Status: "shipped"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertExpectations(t)
}

func TestCanonicalCode(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetOrderByID", mock.Anything, int64(42)).Return(&Order{ID: 42, CreatedAt: created}, nil)
	repo.On("GetOrderByID", mock.Anything, int64(43)).Return(nil, apperr.NotFoundf("order 43 not found"))
	svc, _ := newTestService(repo)

	code, err := svc.CanonicalCode(context.Background(), "PHOTO-000042")
	require.NoError(t, err)
	assert.Equal(t, "#ORD-2025-042", code)

	_, err = svc.CanonicalCode(context.Background(), "DOC-000043")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.CanonicalCode(context.Background(), "???")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
