package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/notify"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
)

// AuditEventHandler drains the audit queue and forwards operator-facing
// events to Telegram. Delivery is best-effort: a failed push is logged and
// the message is not requeued.
type AuditEventHandler struct {
	tg  *notify.Telegram
	log *slog.Logger
}

func NewAuditEventHandler(tg *notify.Telegram, log *slog.Logger) *AuditEventHandler {
	return &AuditEventHandler{tg: tg, log: log}
}

func (h *AuditEventHandler) HandleAudit(ctx context.Context, ev usecase.AuditEvent) error {
	outcome := "ok"
	if !ev.Success {
		outcome = "FAILED"
	}
	text := fmt.Sprintf("[%s] %s\n%s", ev.Kind, outcome, ev.Text)
	if err := h.tg.Send(ctx, text); err != nil {
		h.log.Warn("telegram push failed", "kind", ev.Kind, "order_id", ev.OrderID, "error", err)
	}
	return nil
}
