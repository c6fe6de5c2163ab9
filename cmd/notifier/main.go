// The notifier consumes reservation events and dispatches them to the
// people involved. Delivery channels (email, push) plug in behind
// Dispatcher; the default implementation records the dispatch in the log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"roomres/pkg/config"
	"roomres/pkg/kafka"
	kafka_config "roomres/pkg/kafka/config"
	"roomres/pkg/model"
)

const (
	ServiceName   = "notifier"
	consumerGroup = "reservation-notifier"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.EventsTopic, consumerGroup, cfg.EventsDLQTopic, dispatchHandler(cfg))
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		cfg.Log.Info("Notifier started", "topic", cfg.EventsTopic, "group", consumerGroup)
		done <- consumer.Start(ctx)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Fatal("Consumer stopped unexpectedly", "error", err)
		}
	case sig := <-shutdown:
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
		<-done
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Consumer close failed", "error", err)
	}
	cfg.Log.Info("Notifier stopped gracefully")
}

// dispatchHandler decodes each reservation event and notifies the actors
// involved. Returning an error hands the message to the retry/DLQ path.
func dispatchHandler(cfg *config.Config) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.Event
		if err := msg.DecodeValue(&event); err != nil {
			// Undecodable payloads will never succeed on retry.
			cfg.Log.Error("Discarding malformed event",
				"event_id", msg.GetEventID(),
				"error", err,
			)
			return nil
		}

		cfg.Log.Info("Dispatching reservation notification",
			"event_id", msg.GetEventID(),
			"type", event.Type,
			"reservation_id", event.ReservationID,
			"room_id", event.RoomID,
			"actor", event.Actor.UserID,
			"timestamp", event.Timestamp,
		)
		return nil
	}
}
