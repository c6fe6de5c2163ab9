// Package notifier publishes reservation lifecycle events to Kafka for
// downstream consumers (email, dashboards). Publishing is best-effort;
// callers treat delivery failures as log-and-continue.
package notifier

import (
	"context"
	"fmt"

	"roomres/pkg/kafka"
	"roomres/pkg/logger"
	"roomres/pkg/model"
)

const source = "reservations-service"

type KafkaNotifier struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, log: log}
}

// Notify publishes the event keyed by reservation ID so all events for a
// reservation land on the same partition, in order.
func (n *KafkaNotifier) Notify(ctx context.Context, event model.Event) error {
	msg, err := kafka.NewMessage(event.ReservationID, string(event.Type), source, event)
	if err != nil {
		return fmt.Errorf("encoding reservation event: %w", err)
	}

	if err := n.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publishing reservation event: %w", err)
	}

	n.log.Debug("Reservation event published",
		"type", event.Type,
		"reservation_id", event.ReservationID,
	)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
