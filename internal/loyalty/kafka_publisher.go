package loyalty

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/segmentio/kafka-go"
)

const eventTypeAwardRequested = "LoyaltyAwardRequested"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends award requests to a topic, keyed by order id so that
// all requests for one order land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) AwardPoints(ctx context.Context, award domain.LoyaltyAward) error {
	body, err := json.Marshal(award)
	if err != nil {
		return fmt.Errorf("marshal loyalty award: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(award.SourceOrderID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeAwardRequested)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish loyalty award for order %s: %w", award.SourceOrderID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
