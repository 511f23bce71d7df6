package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

// Service defines catalog business logic.
type Service interface {
	CreateRule(ctx context.Context, req CreateRuleRequest) (*PriceRule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]*PriceRule, error)
	Quote(ctx context.Context, mode PricingMode, sel Selection) (*Quote, error)
}

// CreateRuleRequest holds the data for a new price rule.
type CreateRuleRequest struct {
	PaperSizeID int64           `json:"paper_size_id"`
	ColorModeID int64           `json:"color_mode_id"`
	SideID      int64           `json:"side_id"`
	MinPages    int             `json:"min_pages"`
	MinQty      int             `json:"min_qty"`
	BasePrice   decimal.Decimal `json:"base_price"`
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest) (*PriceRule, error) {
	if req.PaperSizeID <= 0 || req.ColorModeID <= 0 || req.SideID <= 0 {
		return nil, apperr.Validationf("paper_size_id, color_mode_id and side_id are required")
	}
	if req.MinPages < 0 || req.MinQty < 0 {
		return nil, apperr.Validationf("min_pages and min_qty must not be negative")
	}
	if !req.BasePrice.IsPositive() {
		return nil, apperr.Validationf("base_price must be positive")
	}
	rule := &PriceRule{
		PaperSizeID: req.PaperSizeID,
		ColorModeID: req.ColorModeID,
		SideID:      req.SideID,
		MinPages:    req.MinPages,
		MinQty:      req.MinQty,
		BasePrice:   req.BasePrice,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, activeOnly bool) ([]*PriceRule, error) {
	return s.repo.List(ctx, activeOnly)
}

// Quote prices a selection. FIXED items cost the base price each; the other
// modes multiply it by the page count.
func (s *service) Quote(ctx context.Context, mode PricingMode, sel Selection) (*Quote, error) {
	if !mode.Valid() {
		return nil, apperr.Validationf("unknown pricing mode %q", mode)
	}
	if sel.Pages < 1 || sel.Quantity < 1 {
		return nil, apperr.Validationf("pages and quantity must be at least 1")
	}
	rule, err := s.repo.FindRule(ctx, sel)
	if err != nil {
		return nil, err
	}
	unit := rule.BasePrice
	if mode != Fixed {
		unit = unit.Mul(decimal.NewFromInt(int64(sel.Pages)))
	}
	unitPrice := unit.Round(0).IntPart()
	return &Quote{
		RuleID:    rule.ID,
		Mode:      mode,
		UnitPrice: unitPrice,
		LineTotal: unitPrice * int64(sel.Quantity),
	}, nil
}
