package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Terminal statuses guard the reconciliation compare-and-swap. The legacy
// stored value is included so pre-migration rows stay frozen too.
const terminalStatusSet = "('paid','error','cancelled','success')"

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

func (r *MySQLOrderRepo) CreateAggregate(ctx context.Context, o *domain.Order) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO orders (id, status, amount, external_id, payment_data, created_at, updated_at)
VALUES (?,?,?,NULL,NULL,NOW(),NOW())`,
			o.ID, string(o.Status), o.Amount)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		d := o.Detail
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.OrderID = o.ID
		_, err = tx.ExecContext(ctx, `
INSERT INTO order_details (id, order_id, email, phone, first_name, address, latitude, longitude, delivery_price, comment)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
			d.ID, d.OrderID, nullStr(d.Email), nullStr(d.Phone), nullStr(d.FirstName),
			nullStr(d.Address), nullStr(d.Latitude), nullStr(d.Longitude), d.DeliveryPrice, nullStr(d.Comment))
		if err != nil {
			return fmt.Errorf("insert order detail: %w", err)
		}

		for _, l := range o.Links {
			_, err = tx.ExecContext(ctx, `
INSERT INTO order_product_links (order_id, product_id, quantity) VALUES (?,?,?)`,
				o.ID, l.ProductID, l.Quantity)
			if err != nil {
				return fmt.Errorf("insert order product link: %w", err)
			}
		}
		return nil
	})
}

// AttachPayment records the provider reference once: the external_id guard
// keeps a repeated deposit response from overwriting the first one.
func (r *MySQLOrderRepo) AttachPayment(ctx context.Context, id, externalID string, paymentData []byte) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET external_id = ?, payment_data = ?, updated_at = NOW()
WHERE id = ? AND external_id IS NULL`,
		externalID, paymentData, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

const orderColumns = "o.id, o.status, o.amount, o.amount_paid, o.external_id, o.payment_data, o.created_at, o.updated_at"

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.id = ?", id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadAggregates(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *MySQLOrderRepo) FindByIDOrExternalID(ctx context.Context, id, externalID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.id = ? OR o.external_id = ? LIMIT 1",
		id, externalID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadAggregates(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *MySQLOrderRepo) List(ctx context.Context, f usecase.OrderFilter, p usecase.Page) ([]*domain.Order, error) {
	where, args := buildOrderWhere(f)
	dir := "DESC"
	if p.Dir == usecase.SortAsc {
		dir = "ASC"
	}
	// p.SortBy comes from the closed allow-list, never from raw caller input
	query := "SELECT " + orderColumns + " FROM orders o" + where +
		fmt.Sprintf(" ORDER BY o.%s %s LIMIT ? OFFSET ?", p.SortBy, dir)
	args = append(args, p.Limit, p.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if err := r.loadAggregates(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusIf is the administrative compare-and-swap: the status column
// must still hold the value the caller read, otherwise nothing is written.
func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ApplyPaymentIf is the reconciliation compare-and-swap: a single conditional
// UPDATE, so two concurrent callbacks can never both see a non-terminal order.
func (r *MySQLOrderRepo) ApplyPaymentIf(ctx context.Context, id string, to domain.Status, amountPaid decimal.Decimal) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = ?, amount_paid = ?, updated_at = NOW()
WHERE id = ? AND status NOT IN `+terminalStatusSet,
		string(to), amountPaid, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLOrderRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_details WHERE order_id = ?`, id); err != nil {
			return fmt.Errorf("delete order detail: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_product_links WHERE order_id = ?`, id); err != nil {
			return fmt.Errorf("delete order product links: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return usecase.ErrNotFound
		}
		return nil
	})
}

// loadAggregates eager-loads details and product links for the given orders
// in two IN queries.
func (r *MySQLOrderRepo) loadAggregates(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]any, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	ph := placeholders(len(ids))

	rows, err := r.db.QueryContext(ctx, `
SELECT id, order_id, email, phone, first_name, address, latitude, longitude, delivery_price, comment
FROM order_details WHERE order_id IN (`+ph+`)`, ids...)
	if err != nil {
		return fmt.Errorf("load details: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d domain.OrderDetail
		var email, phone, firstName, address, lat, lon, comment sql.NullString
		if err := rows.Scan(&d.ID, &d.OrderID, &email, &phone, &firstName, &address,
			&lat, &lon, &d.DeliveryPrice, &comment); err != nil {
			return fmt.Errorf("scan detail: %w", err)
		}
		d.Email, d.Phone, d.FirstName = email.String, phone.String, firstName.String
		d.Address, d.Latitude, d.Longitude, d.Comment = address.String, lat.String, lon.String, comment.String
		if o, ok := byID[d.OrderID]; ok {
			detail := d
			o.Detail = &detail
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	linkRows, err := r.db.QueryContext(ctx, `
SELECT order_id, product_id, quantity FROM order_product_links WHERE order_id IN (`+ph+`)`, ids...)
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var l domain.OrderProductLink
		if err := linkRows.Scan(&l.OrderID, &l.ProductID, &l.Quantity); err != nil {
			return fmt.Errorf("scan link: %w", err)
		}
		if o, ok := byID[l.OrderID]; ok {
			o.Links = append(o.Links, l)
		}
	}
	return linkRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var status string
	var externalID sql.NullString
	var paymentData []byte
	if err := row.Scan(&o.ID, &status, &o.Amount, &o.AmountPaid, &externalID,
		&paymentData, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, usecase.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = parsed
	o.ExternalID = externalID.String
	o.PaymentData = paymentData
	return &o, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
