package catalog

import "context"

// Repository defines the interface for price rule storage.
type Repository interface {
	Create(ctx context.Context, rule *PriceRule) error
	List(ctx context.Context, activeOnly bool) ([]*PriceRule, error)
	// FindRule returns the most specific active rule whose floors the selection meets.
	FindRule(ctx context.Context, sel Selection) (*PriceRule, error)
}
