// Package kafka publishes lifecycle events to a kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog/internal/event"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes events keyed by product id, so all events for one product
// land on the same partition in order.
type Producer struct {
	writer messageWriter
	log    *logrus.Entry
}

func NewProducer(brokers []string, topic string, log *logrus.Entry) *Producer {
	log = log.WithField("component", "kafka_producer")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("messages", len(messages)).Warn("kafka write failed")
			}
		},
	}
	return &Producer{writer: writer, log: log}
}

// Publish hands evt to the writer. With the async writer delivery errors are
// reported through the completion callback, not returned here.
func (p *Producer) Publish(ctx context.Context, evt event.Event) error {
	msg, err := buildMessage(evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", evt.Type, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(evt event.Event) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.ProductID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}, nil
}
