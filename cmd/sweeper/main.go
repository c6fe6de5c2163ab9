// The sweeper periodically expires stale reservations and completes
// ongoing ones whose effective end has passed. It shares the reservation
// service with the HTTP binary, so sweeps respect the same transition
// rules and emit the same events.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"roomres/internal/reservations/notifier"
	"roomres/internal/reservations/repository"
	"roomres/internal/reservations/service"
	"roomres/internal/reservations/validator"
	"roomres/pkg/clock"
	"roomres/pkg/config"
	"roomres/pkg/kafka"
	kafka_config "roomres/pkg/kafka/config"
)

const ServiceName = "sweeper"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	loc, err := clock.LoadZone(cfg.Timezone)
	if err != nil {
		cfg.Log.Fatal("Invalid timezone", "timezone", cfg.Timezone, "error", err)
	}
	clk := clock.System(loc)

	var eventNotifier service.Notifier
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka disabled, events will not be published", "error", err)
	} else {
		producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
		}
		defer producer.Close()
		eventNotifier = notifier.NewKafkaNotifier(producer, cfg.Log)
	}

	reservationService := service.NewReservationService(
		repository.NewMongoReservationRepository(cfg),
		repository.NewRoomLockRepository(cfg),
		validator.NewReservationValidator(clk, cfg.Log),
		clk,
		eventNotifier,
		cfg,
	)

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		cfg.Log.Fatal("Failed to initialize scheduler", "error", err)
	}

	job, err := scheduler.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
			defer cancel()

			if _, err := reservationService.SweepExpired(ctx); err != nil {
				cfg.Log.Error("Expiry sweep failed", "error", err)
			}
			if _, err := reservationService.SweepCompleted(ctx); err != nil {
				cfg.Log.Error("Completion sweep failed", "error", err)
			}
		}),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to schedule sweep job", "error", err)
	}

	scheduler.Start()
	cfg.Log.Info("Sweeper started",
		"job_id", job.ID().String(),
		"interval", cfg.SweepInterval,
		"timezone", cfg.Timezone,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	cfg.Log.Info("Shutdown signal received", "signal", sig)
	if err := scheduler.Shutdown(); err != nil {
		cfg.Log.Error("Scheduler shutdown failed", "error", err)
	}
	cfg.GracefulShutdown()
	cfg.Log.Info("Sweeper stopped gracefully")
}
