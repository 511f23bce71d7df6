package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/printnow-backend/internal/modules/catalog"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusReady      OrderStatus = "ready"
	StatusPaid       OrderStatus = "paid"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// legacyNew is the old spelling of StatusPending still present in older rows.
const legacyNew = "new"

// validTransitions defines the allowed status state machine.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusReady, StatusCompleted},
	StatusReady:      {StatusPaid, StatusCompleted},
	StatusPaid:       {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ParseStatus accepts any case and maps the legacy "new" alias to pending.
func ParseStatus(s string) (OrderStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == legacyNew {
		return StatusPending, nil
	}
	st := OrderStatus(v)
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether a customer may still cancel the order.
func (s OrderStatus) Cancellable() bool { return s == StatusPending }

// storedSpellings lists every value the status column may hold for s.
func storedSpellings(s OrderStatus) []string {
	if s == StatusPending {
		return []string{string(StatusPending), legacyNew, strings.ToUpper(legacyNew)}
	}
	return []string{string(s)}
}

// PrintType is what kind of job an item is.
type PrintType string

const (
	PrintDocument PrintType = "DOCUMENT"
	PrintPhoto    PrintType = "PHOTO"
	PrintBanner   PrintType = "BANNER"
)

func (t PrintType) Valid() bool {
	switch t {
	case PrintDocument, PrintPhoto, PrintBanner:
		return true
	}
	return false
}

// Order is a customer's print order. Amounts are whole currency units.
type Order struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	CustomerID  int64        `json:"customer_id"`
	Status      OrderStatus  `json:"status"`
	Subtotal    int64        `json:"subtotal"`
	Discount    int64        `json:"discount"`
	TotalAmount int64        `json:"total_amount"`
	Note        string       `json:"note,omitempty"`
	Items       []*OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// OrderItem is a single line item within an order. Items never change after creation.
type OrderItem struct {
	ID           int64               `json:"id"`
	OrderID      int64               `json:"order_id"`
	PrintType    PrintType           `json:"print_type"`
	PricingMode  catalog.PricingMode `json:"pricing_mode"`
	PaperSizeID  int64               `json:"paper_size_id"`
	ColorModeID  int64               `json:"color_mode_id"`
	SideID       int64               `json:"side_id"`
	Pages        int                 `json:"pages"`
	Quantity     int                 `json:"quantity"`
	UnitPrice    int64               `json:"unit_price"`
	LineTotal    int64               `json:"line_total"`
	ExtraOptions ExtraOptions        `json:"extra_options,omitempty"`
	Note         string              `json:"note,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CartItem describes one item a customer wants printed.
type CartItem struct {
	PrintType    PrintType           `json:"print_type"`
	PricingMode  catalog.PricingMode `json:"pricing_mode"`
	PaperSizeID  int64               `json:"paper_size_id"`
	ColorModeID  int64               `json:"color_mode_id"`
	SideID       int64               `json:"side_id"`
	Pages        int                 `json:"pages"`
	Quantity     int                 `json:"quantity"`
	ExtraOptions ExtraOptions        `json:"extra_options,omitempty"`
	Note         string              `json:"note,omitempty"`
}

// PlaceOrderRequest is the payload for creating a new order.
type PlaceOrderRequest struct {
	Items []CartItem `json:"items"`
	Note  string     `json:"note,omitempty"`
}

// ListFilter narrows a customer's order history. Status may name a group (see statusGroup).
type ListFilter struct {
	Status   string
	Page     int
	PageSize int
}

// OrderPage is one page of a customer's orders, newest first.
type OrderPage struct {
	Orders   []*Order `json:"orders"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}
