package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Method is how a payment is collected.
type Method string

const (
	MethodCash   Method = "cash"
	MethodOnline Method = "online"
)

// Status represents the lifecycle of a payment record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// PayType selects how much an online session asks for.
type PayType string

const (
	PayFull    PayType = "FULL"
	PayDeposit PayType = "DEPOSIT"
)

// ErrMissingPaymentID means storage returned a payment without an id. It is a
// backend defect, never a user error, and is surfaced as an internal failure.
var ErrMissingPaymentID = errors.New("payment: record has no id")

// Payment is the single payment record of an order. Amounts are whole currency units.
type Payment struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     int64      `json:"order_id"`
	Method      Method     `json:"method"`
	Status      Status     `json:"status"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	ProviderRef string     `json:"provider_ref,omitempty"`
	QRImageURL  string     `json:"qr_image_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// expired reports whether an online session has passed its deadline unpaid.
func (p *Payment) expired(now time.Time) bool {
	return p.Method == MethodOnline && p.Status == StatusPending &&
		p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Notification is an incoming bank transfer notification. Description and
// Reference are free text; OverrideCode is an explicitly supplied order code
// used only when the text holds none.
type Notification struct {
	Description  string
	Reference    string
	Amount       int64
	OverrideCode string
}

// Outcome tells the webhook sender what happened. Ignored notifications are
// acknowledged without any state change.
type Outcome struct {
	Ignored bool   `json:"ignored"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Settlement is the result of an online payment being applied to an order.
type Settlement struct {
	OrderID    int64    `json:"order_id"`
	Code       string   `json:"code"`
	PaidAmount int64    `json:"paid_amount"`
	FinalTotal int64    `json:"final_total"`
	Payment    *Payment `json:"payment"`
}

// CreateSessionRequest opens an online QR payment for an order.
type CreateSessionRequest struct {
	OrderID   int64   `json:"order_id"`
	PayType   PayType `json:"pay_type"`
	ReturnURL string  `json:"return_url,omitempty"`
}
