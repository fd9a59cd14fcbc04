package usecase

import (
	"context"
	"errors"

	"github.com/Lost-tail/MetalProductsBackend/internal/delivery"
	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrTransition rejects an administrative status change the central
	// transition table does not allow.
	ErrTransition = errors.New("status transition not allowed")
)

// OrderRepo is the persistence port for the order aggregate. CreateAggregate
// must write order, detail, and links durable-or-nothing; ApplyPaymentIf must
// be a single conditional write so concurrent callbacks cannot both apply.
type OrderRepo interface {
	CreateAggregate(ctx context.Context, o *domain.Order) error
	// AttachPayment records the provider reference after a successful deposit
	// request; it is a second, independent step after CreateAggregate.
	AttachPayment(ctx context.Context, id, externalID string, paymentData []byte) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// FindByIDOrExternalID resolves an inbound callback: either the internal
	// id or the provider-assigned external id must match.
	FindByIDOrExternalID(ctx context.Context, id, externalID string) (*domain.Order, error)
	List(ctx context.Context, f OrderFilter, p Page) ([]*domain.Order, error)
	// UpdateStatusIf swaps the status only while it still equals from, as a
	// single conditional write. Returns false when the guard did not match,
	// so a concurrent settlement can never be overwritten.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error)
	// ApplyPaymentIf sets status and amount_paid only while the order is
	// still non-terminal. Returns false when the guard did not match.
	ApplyPaymentIf(ctx context.Context, id string, to domain.Status, amountPaid decimal.Decimal) (bool, error)
	Delete(ctx context.Context, id string) error
}

// ProductRepo reads catalog snapshots. Ids with no matching product are simply
// absent from the result.
type ProductRepo interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
}

// Quoter estimates a delivery price; implementations never fail, they degrade
// to zero.
type Quoter interface {
	Quote(ctx context.Context, items []delivery.Item, lat, lon float64) decimal.Decimal
}

// AuditNotifier is the fire-and-forget audit/notification channel. Callers
// swallow errors; a lost audit event never affects the request path.
type AuditNotifier interface {
	Notify(ctx context.Context, ev AuditEvent) error
}

// StatusEventPublisher streams order status changes to interested consumers,
// best-effort.
type StatusEventPublisher interface {
	PublishStatusChanged(ctx context.Context, msg StatusChangedMsg) error
}
