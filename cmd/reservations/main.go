package main

import (
	"github.com/joho/godotenv"

	"roomres/internal/reservations/handler"
	"roomres/internal/reservations/notifier"
	"roomres/internal/reservations/repository"
	"roomres/internal/reservations/service"
	"roomres/internal/reservations/validator"
	"roomres/pkg/app"
	"roomres/pkg/clock"
	"roomres/pkg/config"
	"roomres/pkg/kafka"
	kafka_config "roomres/pkg/kafka/config"
)

const ServiceName = "reservations"

func main() {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Reservations service")
	reservationService, producer := initServices(cfg)
	if producer != nil {
		defer producer.Close()
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewReservationHandler(reservationService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.ReservationService, *kafka.Producer) {
	loc, err := clock.LoadZone(cfg.Timezone)
	if err != nil {
		cfg.Log.Fatal("Invalid timezone", "timezone", cfg.Timezone, "error", err)
	}
	clk := clock.System(loc)

	reservationValidator := validator.NewReservationValidator(clk, cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewRoomLockRepository(cfg)

	var eventNotifier service.Notifier
	var producer *kafka.Producer
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka disabled, events will not be published", "error", err)
	} else {
		producer, err = kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
		}
		eventNotifier = notifier.NewKafkaNotifier(producer, cfg.Log)
	}

	reservationService := service.NewReservationService(
		reservationRepo,
		lockRepo,
		reservationValidator,
		clk,
		eventNotifier,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized",
		"database", cfg.MongoDatabaseName,
		"timezone", cfg.Timezone,
	)
	return reservationService, producer
}
