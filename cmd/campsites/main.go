package main

import (
	"basecamp/internal/campsites/events"
	"basecamp/internal/campsites/handler"
	"basecamp/internal/campsites/repository"
	"basecamp/internal/campsites/service"
	"basecamp/internal/campsites/validator"
	"basecamp/pkg/app"
	"basecamp/pkg/config"
	kafka_config "basecamp/pkg/kafka/config"
)

func main() {
	cfg := config.Load("campsites")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	campsiteRepo := repository.NewMongoCampsiteRepository(cfg)
	availabilityRepo := repository.NewMongoAvailabilityRepository(cfg)
	reservationRepo := repository.NewMongoReservationRepository(cfg)

	calendarService := service.NewCalendarService(campsiteRepo, availabilityRepo, cfg)
	campsiteService := service.NewCampsiteService(
		campsiteRepo,
		availabilityRepo,
		reservationRepo,
		calendarService,
		validator.NewCampsiteValidator(cfg.Log),
		cfg,
	)
	reservationService := service.NewReservationService(
		reservationRepo,
		campsiteRepo,
		availabilityRepo,
		validator.NewReservationValidator(cfg.Log, cfg),
		publisher,
		cfg,
	)

	application := app.NewApplication()
	application.SetApp(cfg,
		handler.NewCampsiteHandler(campsiteService, cfg.Log),
		handler.NewReservationHandler(reservationService, cfg.Log),
	)
	application.AddWorker(service.NewCalendarRefresher(calendarService, cfg))
	application.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Reservation event publishing disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}

	publisher, err := events.NewKafkaPublisher(kafkaCfg, cfg.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
	}

	cfg.Log.Info("Reservation event publishing enabled",
		"topic", cfg.EventsTopic,
		"brokers", kafkaCfg.Brokers,
	)
	return publisher
}
