package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const ruleColumns = `id, paper_size_id, color_mode_id, side_id, min_pages, min_qty, base_price, is_active, created_at`

func (r *postgresRepo) Create(ctx context.Context, rule *PriceRule) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO price_rules
		  (paper_size_id, color_mode_id, side_id, min_pages, min_qty, base_price, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`,
		rule.PaperSizeID, rule.ColorModeID, rule.SideID, rule.MinPages, rule.MinQty,
		rule.BasePrice, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("catalog: insert price rule: %w", err)
	}
	return nil
}

func scanRule(scan func(...interface{}) error) (*PriceRule, error) {
	p := &PriceRule{}
	err := scan(&p.ID, &p.PaperSizeID, &p.ColorModeID, &p.SideID, &p.MinPages, &p.MinQty,
		&p.BasePrice, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) List(ctx context.Context, activeOnly bool) ([]*PriceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM price_rules`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY paper_size_id, color_mode_id, side_id, min_pages, min_qty`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list price rules: %w", err)
	}
	defer rows.Close()

	var rules []*PriceRule
	for rows.Next() {
		p, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan price rule: %w", err)
		}
		rules = append(rules, p)
	}
	return rules, rows.Err()
}

func (r *postgresRepo) FindRule(ctx context.Context, sel Selection) (*PriceRule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM price_rules
		WHERE paper_size_id = $1 AND color_mode_id = $2 AND side_id = $3
		  AND is_active = true AND min_pages <= $4 AND min_qty <= $5
		ORDER BY min_pages DESC, min_qty DESC
		LIMIT 1`,
		sel.PaperSizeID, sel.ColorModeID, sel.SideID, sel.Pages, sel.Quantity)
	p, err := scanRule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Validationf("no price rule for paper %d, color %d, side %d",
			sel.PaperSizeID, sel.ColorModeID, sel.SideID)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: find price rule: %w", err)
	}
	return p, nil
}
