package repo

import (
	"strings"

	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
)

// clause is one independently specified predicate over the orders table.
type clause struct {
	sql  string
	args []any
}

// buildOrderWhere folds the set fields of the filter into an ordered clause
// list and joins them conjunctively. The search term forms its own OR-group
// which is then ANDed with the rest. An empty filter yields an empty WHERE.
func buildOrderWhere(f usecase.OrderFilter) (string, []any) {
	var clauses []clause

	if f.Status != nil {
		clauses = append(clauses, clause{"o.status = ?", []any{string(*f.Status)}})
	}
	if len(f.StatusIn) > 0 {
		args := make([]any, 0, len(f.StatusIn))
		for _, s := range f.StatusIn {
			args = append(args, string(s))
		}
		clauses = append(clauses, clause{"o.status IN (" + placeholders(len(args)) + ")", args})
	}
	if f.CreatedFrom != nil {
		clauses = append(clauses, clause{"o.created_at >= ?", []any{*f.CreatedFrom}})
	}
	if f.CreatedTo != nil {
		clauses = append(clauses, clause{"o.created_at <= ?", []any{*f.CreatedTo}})
	}
	if len(f.ProductIDs) > 0 {
		args := make([]any, 0, len(f.ProductIDs))
		for _, id := range f.ProductIDs {
			args = append(args, id)
		}
		clauses = append(clauses, clause{
			"EXISTS (SELECT 1 FROM order_product_links l WHERE l.order_id = o.id AND l.product_id IN (" +
				placeholders(len(args)) + "))",
			args,
		})
	}
	if f.Search != "" {
		term := "%" + strings.ToLower(f.Search) + "%"
		clauses = append(clauses, clause{
			"(LOWER(CAST(o.id AS CHAR)) LIKE ?" +
				" OR LOWER(COALESCE(o.external_id, '')) LIKE ?" +
				" OR EXISTS (SELECT 1 FROM order_details d WHERE d.order_id = o.id" +
				" AND (LOWER(COALESCE(d.email, '')) LIKE ? OR LOWER(COALESCE(d.phone, '')) LIKE ?)))",
			[]any{term, term, term, term},
		})
	}

	if len(clauses) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(clauses))
	var args []any
	for _, c := range clauses {
		parts = append(parts, c.sql)
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}
