package order

import "context"

// Repository defines data access for orders.
type Repository interface {
	// CreateOrder persists a new order and its items atomically in a transaction,
	// filling in the generated ids and timestamps.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrderByID retrieves an order with its items.
	GetOrderByID(ctx context.Context, id int64) (*Order, error)

	// ListOrdersByCustomer returns one page of a customer's orders and the
	// total number matching. An empty statuses slice matches every status.
	ListOrdersByCustomer(ctx context.Context, customerID int64, statuses []string, limit, offset int) ([]*Order, int, error)

	// CancelOrder moves the order to cancelled only while its stored status is
	// one of from. It reports false when the order had already moved on.
	CancelOrder(ctx context.Context, id, customerID int64, from []string, note string) (bool, error)
}
