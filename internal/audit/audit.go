// Package audit records who changed inventory and every rejected total.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Action string

const (
	ActionBookingCreated   Action = "booking.created"
	ActionPriceMismatch    Action = "booking.price_mismatch"
	ActionCapacityAdjusted Action = "event.capacity_adjusted"
	ActionEventCreated     Action = "event.created"
	ActionEventDeleted     Action = "event.deleted"
)

type Entry struct {
	ID             string       `json:"id"`
	Action         Action       `json:"action"`
	ActorID        string       `json:"actor_id"`
	EventID        uint         `json:"event_id"`
	BookingID      uint         `json:"booking_id,omitempty"`
	Quantity       int          `json:"quantity,omitempty"`
	ClaimedTotal   models.Money `json:"claimed_total,omitempty"`
	ExpectedTotal  models.Money `json:"expected_total,omitempty"`
	TotalSeats     int          `json:"total_seats,omitempty"`
	AvailableSeats int          `json:"available_seats"`
	At             time.Time    `json:"at"`
}

func NewEntry(action Action, actorID string, eventID uint) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Action:  action,
		ActorID: actorID,
		EventID: eventID,
		At:      time.Now().UTC(),
	}
}

type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// LogSink writes entries to the structured log. Used when no broker is set.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("audit")}
}

func (s *LogSink) Record(_ context.Context, e Entry) error {
	s.log.Info(string(e.Action),
		zap.String("audit_id", e.ID),
		zap.String("actor_id", e.ActorID),
		zap.Uint("event_id", e.EventID),
		zap.Uint("booking_id", e.BookingID),
		zap.Int("quantity", e.Quantity),
		zap.Stringer("claimed_total", e.ClaimedTotal),
		zap.Stringer("expected_total", e.ExpectedTotal),
		zap.Int("total_seats", e.TotalSeats),
		zap.Int("available_seats", e.AvailableSeats),
		zap.Time("at", e.At),
	)
	return nil
}

// Producer is satisfied by *kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// KafkaSink appends entries to a topic keyed by event id, so one event's
// trail stays in one partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Record(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	return s.producer.Publish(ctx, s.topic, strconv.FormatUint(uint64(e.EventID), 10), body)
}
