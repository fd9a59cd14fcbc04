package usecase

import (
	"context"
	"time"

	"github.com/Lost-tail/MetalProductsBackend/internal/delivery"
	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/Lost-tail/MetalProductsBackend/internal/payment"
	"github.com/shopspring/decimal"
)

type fakeOrderRepo struct {
	orders    map[string]*domain.Order
	findCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*domain.Order{}}
}

func (r *fakeOrderRepo) CreateAggregate(_ context.Context, o *domain.Order) error {
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) AttachPayment(_ context.Context, id, externalID string, paymentData []byte) error {
	o, ok := r.orders[id]
	if !ok || o.ExternalID != "" {
		return ErrNotFound
	}
	o.ExternalID = externalID
	o.PaymentData = paymentData
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindByIDOrExternalID(_ context.Context, id, externalID string) (*domain.Order, error) {
	r.findCalls++
	for _, o := range r.orders {
		if o.ID == id || (externalID != "" && o.ExternalID == externalID) {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeOrderRepo) List(_ context.Context, _ OrderFilter, _ Page) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *fakeOrderRepo) ApplyPaymentIf(_ context.Context, id string, to domain.Status, amountPaid decimal.Decimal) (bool, error) {
	o, ok := r.orders[id]
	if !ok || o.Status.Terminal() {
		return false, nil
	}
	o.Status = to
	o.AmountPaid = decimal.NewNullDecimal(amountPaid)
	return true, nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

type fakeProductRepo struct {
	products []*domain.Product
}

func (r *fakeProductRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.Product, error) {
	want := map[string]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []*domain.Product
	for _, p := range r.products {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeQuoter struct {
	price   decimal.Decimal
	calls   int
	lastLat float64
	lastLon float64
	items   []delivery.Item
}

func (q *fakeQuoter) Quote(_ context.Context, items []delivery.Item, lat, lon float64) decimal.Decimal {
	q.calls++
	q.lastLat, q.lastLon = lat, lon
	q.items = items
	return q.price
}

type fakeProvider struct {
	res      payment.Result
	requests int
}

func (p *fakeProvider) RequestDeposit(_ context.Context, _ *domain.Order) payment.Result {
	p.requests++
	return p.res
}

func (p *fakeProvider) GetOrderInfo(_ context.Context, _ *domain.Order) payment.Result {
	return payment.Result{}
}

func (p *fakeProvider) VerifyWebhook(map[string]any) bool { return true }

func (p *fakeProvider) ParseWebhook(map[string]any) payment.OrderInfo {
	return payment.OrderInfo{}
}

func (p *fakeProvider) WebhookAck(string) string { return "OK stub" }

type fakeAudit struct {
	events []AuditEvent
}

func (a *fakeAudit) Notify(_ context.Context, ev AuditEvent) error {
	a.events = append(a.events, ev)
	return nil
}

type fakePublisher struct {
	msgs []StatusChangedMsg
}

func (p *fakePublisher) PublishStatusChanged(_ context.Context, msg StatusChangedMsg) error {
	p.msgs = append(p.msgs, msg)
	return nil
}
