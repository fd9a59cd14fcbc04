package payment

import (
	"context"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/shopspring/decimal"
)

// MerchantData carries the payer-facing fields a provider returns alongside a
// deposit: the payment link plus optional bank/wallet display details.
type MerchantData struct {
	PaymentURL     string `json:"payment_url,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	Wallet         string `json:"wallet,omitempty"`
	Currency       string `json:"currency,omitempty"`
	Amount         string `json:"amount,omitempty"`
	Rate           string `json:"rate,omitempty"`
}

// OrderInfo is the transient, provider-side view of an order. It is built per
// request or callback, consumed by the caller, and never persisted as-is.
type OrderInfo struct {
	OrderID         string
	ProviderOrderID string
	Amount          decimal.Decimal
	AmountActual    decimal.Decimal
	Status          domain.Status
	StatusKnown     bool // false when the provider reported a status with no mapping
	Merchant        MerchantData
}

// Result is the uniform envelope for every provider call. Raw keeps the
// untyped response body for audit logging; Success reflects business success,
// which is stricter than transport success (an HTTP 200 with missing
// requisites is still a failure).
type Result struct {
	Success    bool
	Raw        map[string]any
	Info       *OrderInfo
	Err        string
	StatusCode int
}

// Provider abstracts one payment system. Additional providers are added as new
// implementations; the aggregate service and the webhook reconciler only see
// this interface.
type Provider interface {
	// RequestDeposit asks the provider to collect funds for the order and
	// returns the provider-assigned reference plus the payment link.
	RequestDeposit(ctx context.Context, order *domain.Order) Result
	// GetOrderInfo fetches the provider-side state of a previously deposited
	// order (requires order.ExternalID).
	GetOrderInfo(ctx context.Context, order *domain.Order) Result
	// VerifyWebhook recomputes the provider's keyed digest over the callback
	// payload. A mismatch must reject the callback before any state change.
	VerifyWebhook(payload map[string]any) bool
	// ParseWebhook maps a verified callback payload to an OrderInfo.
	ParseWebhook(payload map[string]any) OrderInfo
	// WebhookAck builds the exact acknowledgement body the provider expects;
	// it must be deterministic so replays see the same ack.
	WebhookAck(providerOrderID string) string
}
