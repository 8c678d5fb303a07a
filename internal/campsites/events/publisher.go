package events

import (
	"context"
	"time"

	"basecamp/pkg/kafka"
	kafka_config "basecamp/pkg/kafka/config"
	"basecamp/pkg/logger"
	"basecamp/pkg/model"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationModified  = "reservation.modified"
	EventReservationCancelled = "reservation.cancelled"

	schemaVersion = "1.0"
	source        = "campsites-service"
)

// ReservationEvent is the payload published on every lifecycle transition.
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	CampsiteID    string    `json:"campsite_id"`
	Email         string    `json:"email"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher emits reservation lifecycle events. Publishing is best effort:
// implementations log failures and never surface them to the request path.
type Publisher interface {
	ReservationCreated(ctx context.Context, reservation *model.Reservation)
	ReservationModified(ctx context.Context, reservation *model.Reservation)
	ReservationCancelled(ctx context.Context, reservation *model.Reservation)
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	logger   *logger.Logger
}

func NewKafkaPublisher(cfg *kafka_config.Config, topic string, log *logger.Logger) (Publisher, error) {
	producer, err := kafka.NewProducer(cfg, topic)
	if err != nil {
		return nil, err
	}
	return &kafkaPublisher{
		producer: producer,
		logger:   log,
	}, nil
}

func (p *kafkaPublisher) ReservationCreated(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, EventReservationCreated, reservation)
}

func (p *kafkaPublisher) ReservationModified(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, EventReservationModified, reservation)
}

func (p *kafkaPublisher) ReservationCancelled(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, EventReservationCancelled, reservation)
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, reservation *model.Reservation) {
	event := ReservationEvent{
		ReservationID: reservation.ID,
		CampsiteID:    reservation.CampsiteID,
		Email:         reservation.Email,
		CheckIn:       reservation.CheckIn.Format(model.DateLayout),
		CheckOut:      reservation.CheckOut.Format(model.DateLayout),
		OccurredAt:    time.Now().UTC(),
	}

	// Keyed by reservation ID so transitions of one reservation stay ordered
	// within a partition.
	msg := kafka.NewMessage().
		WithKey(reservation.ID).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(schemaVersion).
		WithSource(source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", reservation.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("Reservation event published",
		"event_type", eventType,
		"reservation_id", reservation.ID,
	)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) ReservationCreated(context.Context, *model.Reservation)   {}
func (NoopPublisher) ReservationModified(context.Context, *model.Reservation)  {}
func (NoopPublisher) ReservationCancelled(context.Context, *model.Reservation) {}
func (NoopPublisher) Close() error                                             { return nil }
