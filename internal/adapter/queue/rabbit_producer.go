package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "order.audit"
	routingKey   = "order.audit.event"
	queueName    = "order.audit.q"
)

// AuditPublisher implements the fire-and-forget audit channel over RabbitMQ.
// Callers swallow its errors; a lost event never affects the request path.
type AuditPublisher struct {
	ch *amqp.Channel
}

// NewAuditPublisher declares the exchange, queue, and binding once at startup.
func NewAuditPublisher(ch *amqp.Channel) (*AuditPublisher, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	return &AuditPublisher{ch: ch}, nil
}

func (p *AuditPublisher) Notify(ctx context.Context, ev usecase.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

var _ usecase.AuditNotifier = (*AuditPublisher)(nil)
