package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
)

// Producer publishes order status events, keyed by order id so per-order
// ordering is preserved within a partition.
type Producer struct {
	sp    sarama.SyncProducer
	topic string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true
	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sp: sp, topic: topic}, nil
}

func (p *Producer) PublishStatusChanged(_ context.Context, msg usecase.StatusChangedMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, _, err = p.sp.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.OrderID),
		Value: sarama.ByteEncoder(body),
	})
	return err
}

func (p *Producer) Close() error { return p.sp.Close() }

var _ usecase.StatusEventPublisher = (*Producer)(nil)
