package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lost-tail/MetalProductsBackend/internal/payment"
)

// ErrBadSignature rejects an unverifiable callback before any order lookup.
var ErrBadSignature = errors.New("webhook signature mismatch")

type ReconcileResult struct {
	// Ack is the provider's expected acknowledgement body; identical on first
	// application and on every replay.
	Ack string
	// Applied is false for an ignored duplicate (order already terminal).
	Applied bool
}

// Reconciler applies a provider callback to the matching order as a one-way,
// idempotent transition: verify, resolve, then a single conditional write.
type Reconciler struct {
	orders   OrderRepo
	provider payment.Provider
	audit    AuditNotifier
	events   StatusEventPublisher
	log      *slog.Logger
}

func NewReconciler(orders OrderRepo, provider payment.Provider, audit AuditNotifier, events StatusEventPublisher, log *slog.Logger) *Reconciler {
	return &Reconciler{orders: orders, provider: provider, audit: audit, events: events, log: log}
}

func (uc *Reconciler) Execute(ctx context.Context, payload map[string]any) (ReconcileResult, error) {
	if !uc.provider.VerifyWebhook(payload) {
		uc.log.Warn("rejected webhook with bad signature")
		uc.notify(ctx, "", false, "webhook rejected: signature mismatch")
		return ReconcileResult{}, ErrBadSignature
	}

	info := uc.provider.ParseWebhook(payload)
	order, err := uc.orders.FindByIDOrExternalID(ctx, info.OrderID, info.ProviderOrderID)
	if err != nil {
		// no match, no ack: the provider should retry or alert
		return ReconcileResult{}, err
	}
	if !info.StatusKnown {
		uc.log.Warn("webhook carries unmapped provider status, treating as error-class",
			"order_id", order.ID)
	}

	res := ReconcileResult{Ack: uc.provider.WebhookAck(info.ProviderOrderID)}
	if info.Status.Terminal() {
		applied, err := uc.orders.ApplyPaymentIf(ctx, order.ID, info.Status, info.AmountActual)
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("apply callback: %w", err)
		}
		res.Applied = applied
	}

	if res.Applied {
		uc.log.Info("webhook applied", "order_id", order.ID, "status", info.Status,
			"amount_paid", info.AmountActual.StringFixed(2))
		if uc.events != nil {
			_ = uc.events.PublishStatusChanged(ctx, StatusChangedMsg{
				OrderID:    order.ID,
				Status:     string(info.Status),
				AmountPaid: info.AmountActual.StringFixed(2),
				At:         time.Now().Unix(),
			})
		}
	} else {
		uc.log.Info("webhook ignored as duplicate", "order_id", order.ID, "status", order.Status)
	}
	uc.notify(ctx, order.ID, true,
		fmt.Sprintf("webhook for order %s: status %s, applied=%v", order.ID, info.Status, res.Applied))
	return res, nil
}

func (uc *Reconciler) notify(ctx context.Context, orderID string, success bool, text string) {
	if uc.audit == nil {
		return
	}
	_ = uc.audit.Notify(ctx, AuditEvent{
		Kind:    AuditWebhook,
		OrderID: orderID,
		Success: success,
		Text:    text,
		At:      time.Now(),
	})
}
