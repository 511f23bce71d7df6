package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingMode decides how a rule's base price turns into a unit price.
type PricingMode string

const (
	PerPage  PricingMode = "PER_PAGE"
	PerSheet PricingMode = "PER_SHEET"
	Fixed    PricingMode = "FIXED"
)

func (m PricingMode) Valid() bool {
	switch m {
	case PerPage, PerSheet, Fixed:
		return true
	}
	return false
}

// PriceRule prices one paper/color/side combination from a page and quantity floor upward.
type PriceRule struct {
	ID          int64           `json:"id"`
	PaperSizeID int64           `json:"paper_size_id"`
	ColorModeID int64           `json:"color_mode_id"`
	SideID      int64           `json:"side_id"`
	MinPages    int             `json:"min_pages"`
	MinQty      int             `json:"min_qty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Selection identifies what a customer wants printed.
type Selection struct {
	PaperSizeID int64 `json:"paper_size_id"`
	ColorModeID int64 `json:"color_mode_id"`
	SideID      int64 `json:"side_id"`
	Pages       int   `json:"pages"`
	Quantity    int   `json:"quantity"`
}

// Quote is the priced result for a Selection. Amounts are whole currency units.
type Quote struct {
	RuleID    int64       `json:"rule_id"`
	Mode      PricingMode `json:"pricing_mode"`
	UnitPrice int64       `json:"unit_price"`
	LineTotal int64       `json:"line_total"`
}
