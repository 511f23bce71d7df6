package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Create(ctx context.Context, rule *PriceRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, activeOnly bool) ([]*PriceRule, error) {
	args := m.Called(ctx, activeOnly)
	rules, _ := args.Get(0).([]*PriceRule)
	return rules, args.Error(1)
}

func (m *mockRepo) FindRule(ctx context.Context, sel Selection) (*PriceRule, error) {
	args := m.Called(ctx, sel)
	rule, _ := args.Get(0).(*PriceRule)
	return rule, args.Error(1)
}

func TestQuote(t *testing.T) {
	sel := Selection{PaperSizeID: 1, ColorModeID: 2, SideID: 1, Pages: 12, Quantity: 3}
	rule := &PriceRule{ID: 9, BasePrice: decimal.RequireFromString("512.5")}

	tests := []struct {
		name      string
		mode      PricingMode
		unitPrice int64
	}{
		{"per page", PerPage, 6150},
		{"per sheet", PerSheet, 6150},
		{"fixed", Fixed, 513},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("FindRule", mock.Anything, sel).Return(rule, nil)

			q, err := NewService(repo).Quote(context.Background(), tt.mode, sel)
			require.NoError(t, err)
			assert.Equal(t, int64(9), q.RuleID)
			assert.Equal(t, tt.unitPrice, q.UnitPrice)
			assert.Equal(t, tt.unitPrice*3, q.LineTotal)
			repo.AssertExpectations(t)
		})
	}
}

func TestQuoteRejectsBadInput(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)

	_, err := svc.Quote(context.Background(), "BY_WEIGHT", Selection{Pages: 1, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Quote(context.Background(), PerPage, Selection{Pages: 0, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	repo.AssertNotCalled(t, "FindRule", mock.Anything, mock.Anything)
}

func TestQuotePropagatesMissingRule(t *testing.T) {
	repo := new(mockRepo)
	sel := Selection{PaperSizeID: 1, ColorModeID: 1, SideID: 1, Pages: 1, Quantity: 1}
	repo.On("FindRule", mock.Anything, sel).Return(nil, apperr.Validationf("no price rule"))

	_, err := NewService(repo).Quote(context.Background(), PerPage, sel)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateRule(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*catalog.PriceRule")).Return(nil)
	svc := NewService(repo)

	rule, err := svc.CreateRule(context.Background(), CreateRuleRequest{
		PaperSizeID: 1, ColorModeID: 1, SideID: 2, MinPages: 10, BasePrice: decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 10, rule.MinPages)

	_, err = svc.CreateRule(context.Background(), CreateRuleRequest{PaperSizeID: 1, ColorModeID: 1, SideID: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertNumberOfCalls(t, "Create", 1)
}
