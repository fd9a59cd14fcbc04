package usecase

import "time"

// Audit event kinds published to the notification channel.
const (
	AuditPaymentRequest = "payment.request"
	AuditWebhook        = "payment.webhook"
	AuditRequestCall    = "request.call"
)

type AuditEvent struct {
	Kind    string    `json:"kind"`
	OrderID string    `json:"orderId,omitempty"`
	Success bool      `json:"success"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// StatusChangedMsg is emitted on Kafka when an order reaches a new status.
type StatusChangedMsg struct {
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	AmountPaid string `json:"amountPaid,omitempty"`
	At         int64  `json:"at"`
}
