package repo

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
)

type MySQLProductRepo struct{ db *sql.DB }

func NewMySQLProductRepo(db *sql.DB) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

// GetByIDs loads snapshots for the given product ids in one query. Ids with
// no matching row are simply absent from the result.
func (r *MySQLProductRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, rub_price, weight, length, width, height, active
FROM products WHERE id IN (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.RubPrice, &p.Weight, &p.Length,
			&p.Width, &p.Height, &p.Active); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)
