package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
	"github.com/shopspring/decimal"
)

func makeOrder(id string) *domain.Order {
	return &domain.Order{
		ID:     id,
		Status: domain.StatusCreated,
		Amount: decimal.RequireFromString("25.00"),
		Detail: &domain.OrderDetail{
			Email:         id + "@example.com",
			FirstName:     "Alice",
			Latitude:      "59.93",
			Longitude:     "30.31",
			DeliveryPrice: decimal.RequireFromString("300.50"),
		},
		Links: []domain.OrderProductLink{
			{OrderID: id, ProductID: "p1", Quantity: 2},
			{OrderID: id, ProductID: "p2", Quantity: 1},
		},
	}
}

func TestOrderAggregateRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	r := NewMySQLOrderRepo(db)
	ctx := context.Background()

	if err := r.CreateAggregate(ctx, makeOrder("ord-1")); err != nil {
		t.Fatalf("CreateAggregate: %v", err)
	}

	got, err := r.GetByID(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusCreated {
		t.Errorf("status = %s", got.Status)
	}
	if !got.Amount.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("amount = %s", got.Amount)
	}
	if got.AmountPaid.Valid {
		t.Errorf("amount_paid = %v, want unset", got.AmountPaid)
	}
	if got.Detail == nil || got.Detail.Email != "ord-1@example.com" {
		t.Fatalf("detail = %+v", got.Detail)
	}
	if !got.Detail.DeliveryPrice.Equal(decimal.RequireFromString("300.50")) {
		t.Errorf("delivery price = %s", got.Detail.DeliveryPrice)
	}
	if len(got.Links) != 2 {
		t.Errorf("links = %d, want 2", len(got.Links))
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	if err := r.AttachPayment(ctx, "ord-1", "inv-1", []byte(`{"payment_url":"https://pay"}`)); err != nil {
		t.Fatalf("AttachPayment: %v", err)
	}
	// the provider reference is set at most once
	if err := r.AttachPayment(ctx, "ord-1", "inv-2", nil); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("second attach err = %v, want ErrNotFound", err)
	}

	got, err = r.FindByIDOrExternalID(ctx, "no-such-id", "inv-1")
	if err != nil {
		t.Fatalf("FindByIDOrExternalID: %v", err)
	}
	if got.ID != "ord-1" || got.ExternalID != "inv-1" {
		t.Errorf("resolved (%s, %s)", got.ID, got.ExternalID)
	}
	if len(got.PaymentData) == 0 {
		t.Error("payment data not persisted")
	}

	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, usecase.ErrNotFound) {
		t.Errorf("missing order err = %v, want ErrNotFound", err)
	}
}

func TestApplyPaymentIfAndStatusSwap(t *testing.T) {
	db := setupTestDB(t)
	r := NewMySQLOrderRepo(db)
	ctx := context.Background()

	if err := r.CreateAggregate(ctx, makeOrder("ord-1")); err != nil {
		t.Fatalf("CreateAggregate: %v", err)
	}

	applied, err := r.ApplyPaymentIf(ctx, "ord-1", domain.StatusPaid, decimal.RequireFromString("25.00"))
	if err != nil || !applied {
		t.Fatalf("first apply = (%v, %v), want applied", applied, err)
	}
	// the replay with a different amount must hit the terminal guard
	applied, err = r.ApplyPaymentIf(ctx, "ord-1", domain.StatusPaid, decimal.RequireFromString("99.00"))
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if applied {
		t.Error("replay applied against a settled order")
	}
	got, err := r.GetByID(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusPaid {
		t.Errorf("status = %s, want paid", got.Status)
	}
	if !got.AmountPaid.Valid || !got.AmountPaid.Decimal.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("amount_paid = %v, want 25.00", got.AmountPaid)
	}

	// pre-migration rows carry the legacy stored value and stay frozen too
	_, err = db.Exec(`INSERT INTO orders (id, status, amount, created_at, updated_at)
VALUES ('legacy-1', 'success', 10.00, NOW(), NOW())`)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	applied, err = r.ApplyPaymentIf(ctx, "legacy-1", domain.StatusError, decimal.Zero)
	if err != nil {
		t.Fatalf("apply to legacy: %v", err)
	}
	if applied {
		t.Error("legacy settled row was mutated")
	}
	legacy, err := r.GetByID(ctx, "legacy-1")
	if err != nil {
		t.Fatalf("GetByID legacy: %v", err)
	}
	if legacy.Status != domain.StatusPaid {
		t.Errorf("legacy status parsed as %s, want paid", legacy.Status)
	}

	// the administrative swap writes only while the guard status still holds
	if err := r.CreateAggregate(ctx, makeOrder("ord-2")); err != nil {
		t.Fatalf("CreateAggregate: %v", err)
	}
	swapped, err := r.UpdateStatusIf(ctx, "ord-2", domain.StatusCreated, domain.StatusCancelled)
	if err != nil || !swapped {
		t.Fatalf("swap = (%v, %v), want swapped", swapped, err)
	}
	swapped, err = r.UpdateStatusIf(ctx, "ord-2", domain.StatusCreated, domain.StatusError)
	if err != nil {
		t.Fatalf("stale swap: %v", err)
	}
	if swapped {
		t.Error("swap succeeded against a stale status")
	}
	got, _ = r.GetByID(ctx, "ord-2")
	if got.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestDeleteRemovesAggregate(t *testing.T) {
	db := setupTestDB(t)
	r := NewMySQLOrderRepo(db)
	ctx := context.Background()

	if err := r.CreateAggregate(ctx, makeOrder("ord-1")); err != nil {
		t.Fatalf("CreateAggregate: %v", err)
	}
	if err := r.Delete(ctx, "ord-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, q := range []string{
		"SELECT COUNT(*) FROM orders WHERE id = 'ord-1'",
		"SELECT COUNT(*) FROM order_details WHERE order_id = 'ord-1'",
		"SELECT COUNT(*) FROM order_product_links WHERE order_id = 'ord-1'",
	} {
		var n int
		if err := db.QueryRow(q).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Errorf("%s = %d, want 0", q, n)
		}
	}

	if err := r.Delete(ctx, "ord-1"); !errors.Is(err, usecase.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListMatchesSingleGets(t *testing.T) {
	db := setupTestDB(t)
	r := NewMySQLOrderRepo(db)
	ctx := context.Background()

	ids := []string{"ord-a", "ord-b", "ord-c", "ord-d", "ord-e"}
	for _, id := range ids {
		o := makeOrder(id)
		if id == "ord-c" {
			o.Links = []domain.OrderProductLink{{OrderID: id, ProductID: "p9", Quantity: 1}}
		}
		if err := r.CreateAggregate(ctx, o); err != nil {
			t.Fatalf("CreateAggregate %s: %v", id, err)
		}
	}
	if _, err := r.ApplyPaymentIf(ctx, "ord-b", domain.StatusPaid, decimal.RequireFromString("25.00")); err != nil {
		t.Fatalf("settle ord-b: %v", err)
	}

	page := usecase.Page{Limit: len(ids), SortBy: usecase.SortByID, Dir: usecase.SortAsc}
	listed, err := r.List(ctx, usecase.OrderFilter{}, page)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != len(ids) {
		t.Fatalf("listed %d orders, want %d", len(listed), len(ids))
	}
	// a full first page is element-wise identical to fetching each order
	for i, id := range ids {
		one, err := r.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID %s: %v", id, err)
		}
		l := listed[i]
		if l.ID != one.ID || l.Status != one.Status || !l.Amount.Equal(one.Amount) {
			t.Errorf("listed[%d] = (%s, %s, %s), get = (%s, %s, %s)",
				i, l.ID, l.Status, l.Amount, one.ID, one.Status, one.Amount)
		}
		if l.Detail == nil || one.Detail == nil || l.Detail.Email != one.Detail.Email {
			t.Errorf("detail mismatch for %s", id)
		}
		if len(l.Links) != len(one.Links) {
			t.Errorf("link count mismatch for %s: %d vs %d", id, len(l.Links), len(one.Links))
		}
	}

	window, err := r.List(ctx, usecase.OrderFilter{},
		usecase.Page{Offset: 2, Limit: 2, SortBy: usecase.SortByID, Dir: usecase.SortAsc})
	if err != nil {
		t.Fatalf("List window: %v", err)
	}
	if len(window) != 2 || window[0].ID != "ord-c" || window[1].ID != "ord-d" {
		t.Errorf("window = %v", orderIDs(window))
	}

	paid := domain.StatusPaid
	settled, err := r.List(ctx, usecase.OrderFilter{Status: &paid}, page)
	if err != nil {
		t.Fatalf("List settled: %v", err)
	}
	if len(settled) != 1 || settled[0].ID != "ord-b" {
		t.Errorf("settled = %v", orderIDs(settled))
	}

	byEmail, err := r.List(ctx, usecase.OrderFilter{Search: "ORD-D@example"}, page)
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].ID != "ord-d" {
		t.Errorf("search = %v", orderIDs(byEmail))
	}

	byProduct, err := r.List(ctx, usecase.OrderFilter{ProductIDs: []string{"p9"}}, page)
	if err != nil {
		t.Fatalf("List by product: %v", err)
	}
	if len(byProduct) != 1 || byProduct[0].ID != "ord-c" {
		t.Errorf("by product = %v", orderIDs(byProduct))
	}
}

func TestProductRepoGetByIDs(t *testing.T) {
	db := setupTestDB(t)
	r := NewMySQLProductRepo(db)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		_, err := db.Exec(`INSERT INTO products (id, name, rub_price, weight, active)
VALUES (?, ?, ?, ?, 1)`,
			fmt.Sprintf("p%d", i), fmt.Sprintf("sheet %d", i), "10.00", "12.500")
		if err != nil {
			t.Fatalf("insert product: %v", err)
		}
	}

	products, err := r.GetByIDs(ctx, []string{"p1", "p2", "ghost"})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2 (unknown id absent)", len(products))
	}
	byID := map[string]*domain.Product{}
	for _, p := range products {
		byID[p.ID] = p
	}
	p1, ok := byID["p1"]
	if !ok {
		t.Fatalf("p1 missing from %v", byID)
	}
	if !p1.RubPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("price = %s", p1.RubPrice)
	}
	if !p1.Weight.Valid || !p1.Weight.Decimal.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("weight = %v", p1.Weight)
	}
	if p1.Length.Valid {
		t.Error("absent dimension reported as set")
	}
}

func orderIDs(orders []*domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
