package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
)

// Orders covers the administrative read/update/delete surface of the
// aggregate. Every read eager-loads detail and product links.
type Orders struct {
	repo OrderRepo
	log  *slog.Logger
}

func NewOrders(repo OrderRepo, log *slog.Logger) *Orders {
	return &Orders{repo: repo, log: log}
}

func (uc *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *Orders) List(ctx context.Context, f OrderFilter, p Page) ([]*domain.Order, error) {
	return uc.repo.List(ctx, f, p.Normalize())
}

// UpdateStatus is the administrative status change. It consults the same
// transition table as the webhook reconciler, and the write itself is a
// compare-and-swap on the status read here, so a webhook settling the order
// between the read and the write loses to the settlement, not the other way
// around.
func (uc *Orders) UpdateStatus(ctx context.Context, id string, to domain.Status) (*domain.Order, error) {
	order, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransition, order.Status, to)
	}
	swapped, err := uc.repo.UpdateStatusIf(ctx, id, order.Status, to)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, fmt.Errorf("%w: order %s changed concurrently", ErrTransition, id)
	}
	uc.log.Info("order status updated", "order_id", id, "from", order.Status, "to", to)
	return uc.repo.GetByID(ctx, id)
}

func (uc *Orders) Delete(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}
