package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lost-tail/MetalProductsBackend/internal/delivery"
	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/Lost-tail/MetalProductsBackend/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LinkInput struct {
	ProductID string
	Quantity  int
}

type DetailInput struct {
	Email     string
	Phone     string
	FirstName string
	Address   string
	Latitude  string
	Longitude string
	Comment   string
}

type CreateOrderInput struct {
	Links  []LinkInput
	Detail DetailInput
}

func (in CreateOrderInput) detail() *domain.OrderDetail {
	return &domain.OrderDetail{
		Email:     in.Detail.Email,
		Phone:     in.Detail.Phone,
		FirstName: in.Detail.FirstName,
		Address:   in.Detail.Address,
		Latitude:  in.Detail.Latitude,
		Longitude: in.Detail.Longitude,
		Comment:   in.Detail.Comment,
	}
}

func (in CreateOrderInput) validate() error {
	if len(in.Links) == 0 {
		return fmt.Errorf("%w: order must contain at least one product", domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(in.Links))
	for _, l := range in.Links {
		if err := (domain.OrderProductLink{ProductID: l.ProductID, Quantity: l.Quantity}).Validate(); err != nil {
			return err
		}
		// one link row per product; a repeated id would collide on insert
		if _, dup := seen[l.ProductID]; dup {
			return fmt.Errorf("%w: duplicate product %s in cart", domain.ErrValidation, l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return in.detail().Validate()
}

// CreateOrder materializes the order aggregate: pricing from product
// snapshots, optional delivery quote, one atomic persist of
// order+detail+links, then a best-effort provider deposit request.
type CreateOrder struct {
	orders   OrderRepo
	products ProductRepo
	quoter   Quoter
	provider payment.Provider
	audit    AuditNotifier
	events   StatusEventPublisher
	// strict rejects carts referencing unknown products instead of silently
	// dropping them from pricing.
	strict bool
	log    *slog.Logger
}

func NewCreateOrder(
	orders OrderRepo,
	products ProductRepo,
	quoter Quoter,
	provider payment.Provider,
	audit AuditNotifier,
	events StatusEventPublisher,
	strict bool,
	log *slog.Logger,
) *CreateOrder {
	return &CreateOrder{
		orders:   orders,
		products: products,
		quoter:   quoter,
		provider: provider,
		audit:    audit,
		events:   events,
		strict:   strict,
		log:      log,
	}
}

func (uc *CreateOrder) Execute(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	products, items, amount, err := uc.price(ctx, in.Links)
	if err != nil {
		return nil, err
	}
	if uc.strict && len(products) < uniqueIDCount(in.Links) {
		return nil, fmt.Errorf("%w: cart references unknown products", domain.ErrValidation)
	}

	order := &domain.Order{
		ID:     uuid.NewString(),
		Status: domain.StatusCreated,
		Amount: amount,
		Detail: in.detail(),
	}
	for _, l := range in.Links {
		order.Links = append(order.Links, domain.OrderProductLink{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}
	if lat, lon, ok := order.Detail.Coordinates(); ok {
		order.Detail.DeliveryPrice = uc.quoter.Quote(ctx, items, lat, lon)
	}

	if err := uc.orders.CreateAggregate(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	// The deposit request is a second, independent step: its failure leaves a
	// visible order with no payment link and never rolls the aggregate back.
	uc.requestDeposit(ctx, order)

	if uc.events != nil {
		_ = uc.events.PublishStatusChanged(ctx, StatusChangedMsg{
			OrderID: order.ID,
			Status:  string(order.Status),
			At:      time.Now().Unix(),
		})
	}
	return uc.orders.GetByID(ctx, order.ID)
}

func (uc *CreateOrder) requestDeposit(ctx context.Context, order *domain.Order) {
	res := uc.provider.RequestDeposit(ctx, order)
	if res.Success && res.Info != nil {
		blob, err := json.Marshal(res.Info.Merchant)
		if err != nil {
			blob = nil
		}
		if err := uc.orders.AttachPayment(ctx, order.ID, res.Info.ProviderOrderID, blob); err != nil {
			uc.log.Error("attach payment data", "order_id", order.ID, "error", err)
		}
	} else {
		uc.log.Warn("deposit request failed, order remains payable-less",
			"order_id", order.ID, "error", res.Err)
	}
	if uc.audit != nil {
		_ = uc.audit.Notify(ctx, AuditEvent{
			Kind:    AuditPaymentRequest,
			OrderID: order.ID,
			Success: res.Success,
			Text:    fmt.Sprintf("deposit request for order %s, amount %s", order.ID, order.Amount.StringFixed(2)),
			At:      time.Now(),
		})
	}
}

// EstimateDelivery quotes shipping for a cart without persisting anything.
// Coordinates are required here, unlike order creation where they are optional.
func (uc *CreateOrder) EstimateDelivery(ctx context.Context, in CreateOrderInput) (decimal.Decimal, error) {
	detail := in.detail()
	lat, lon, ok := detail.Coordinates()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: valid latitude and longitude are required", domain.ErrValidation)
	}
	_, items, _, err := uc.price(ctx, in.Links)
	if err != nil {
		return decimal.Zero, err
	}
	return uc.quoter.Quote(ctx, items, lat, lon), nil
}

// price loads snapshots for the referenced products and computes the exact
// decimal total plus the delivery-quote line items. Unresolved ids contribute
// nothing.
func (uc *CreateOrder) price(ctx context.Context, links []LinkInput) ([]*domain.Product, []delivery.Item, decimal.Decimal, error) {
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ProductID)
	}
	products, err := uc.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, decimal.Zero, fmt.Errorf("load products: %w", err)
	}

	amount := decimal.Zero
	items := make([]delivery.Item, 0, len(products))
	for _, p := range products {
		qty := 1
		for _, l := range links {
			if l.ProductID == p.ID {
				qty = l.Quantity
				break
			}
		}
		amount = amount.Add(p.RubPrice.Mul(decimal.NewFromInt(int64(qty))))
		items = append(items, delivery.Item{
			Quantity: qty,
			Weight:   p.Weight,
			Length:   p.Length,
			Width:    p.Width,
			Height:   p.Height,
		})
	}
	return products, items, amount, nil
}

func uniqueIDCount(links []LinkInput) int {
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		seen[l.ProductID] = struct{}{}
	}
	return len(seen)
}
