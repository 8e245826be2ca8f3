// Package notify publishes order lifecycle events to Kafka. Delivery is
// best-effort: the order service logs failures and never blocks a status
// transition on the broker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avelours/orderdesk/internal/domain/order"
)

var _ order.Notifier = (*StatusPublisher)(nil)

// statusChangedEvent is the wire shape of a status change notification.
type statusChangedEvent struct {
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurredAt"`
}

// StatusPublisher writes order status changes to a Kafka topic, keyed by
// order ID so all events of one order land on the same partition in order.
type StatusPublisher struct {
	writer *kafka.Writer
}

// NewStatusPublisher creates a publisher for the given brokers and topic.
func NewStatusPublisher(brokers []string, topic string) *StatusPublisher {
	return &StatusPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// NotifyStatusChanged publishes one event for the transition.
func (p *StatusPublisher) NotifyStatusChanged(ctx context.Context, orderID string, status order.Status) error {
	payload, err := json.Marshal(statusChangedEvent{
		OrderID:    orderID,
		Status:     string(status),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling status event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publishing status event for order %q: %w", orderID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *StatusPublisher) Close() error {
	return p.writer.Close()
}
