package http

import (
	"errors"
	"net/http"

	"github.com/Lost-tail/MetalProductsBackend/internal/logging"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	reconciler *usecase.Reconciler
}

func NewWebhookHandler(reconciler *usecase.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// PaymentWebhook receives the provider callback. The ack body is returned
// only when an order was resolved; an unverifiable or unmatched callback gets
// no ack, which signals the provider to retry or alert.
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	res, err := h.reconciler.Execute(c.Request.Context(), payload)
	switch {
	case errors.Is(err, usecase.ErrBadSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case err != nil:
		logging.From(c).Error("webhook processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	default:
		c.String(http.StatusOK, res.Ack)
	}
}
