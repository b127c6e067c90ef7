package consumer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Eursukkul/event-ticketing/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrInvalidUpdate = errors.New("seat update has no event id")

// Hub is the local fan-out the consumer relays into.
type Hub interface {
	Publish(update models.SeatUpdate) int
}

type SeatConsumer struct {
	hub Hub
	log *zap.Logger
}

func NewSeatConsumer(hub Hub, log *zap.Logger) *SeatConsumer {
	return &SeatConsumer{hub: hub, log: log}
}

// Start relays RabbitMQ deliveries into the hub until the channel closes.
func (sc *SeatConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			sc.handleMessage(msg)
		}
		sc.log.Info("seat update channel closed, stopping consumer")
	}()
}

func (sc *SeatConsumer) handleMessage(msg amqp.Delivery) {
	if err := sc.HandlePayload(msg.Body); err != nil {
		sc.log.Warn("dropping seat update", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

// HandlePayload decodes one seat update and publishes it to local viewers.
// It is also the handler for the Redis transport.
func (sc *SeatConsumer) HandlePayload(body []byte) error {
	var update models.SeatUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("unmarshal seat update: %w", err)
	}
	if update.EventID == 0 {
		return ErrInvalidUpdate
	}

	n := sc.hub.Publish(update)
	sc.log.Debug("relayed seat update",
		zap.Uint("event_id", update.EventID),
		zap.Int("available_seats", update.AvailableSeats),
		zap.Int64("version", update.Version),
		zap.Int("subscribers", n),
	)
	return nil
}
