package service

import (
	"context"
	"strings"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/audit"
	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	Date        time.Time
	Img         string
	TotalSeats  int
	Price       models.Money
}

// AdjustInput is the admin edit form. Empty descriptive fields and a nil
// Price or Date keep the current value; TotalSeats is always applied.
type AdjustInput struct {
	TotalSeats  int
	Price       *models.Money
	Title       string
	Description string
	Location    string
	Date        *time.Time
	Img         string
}

type EventService interface {
	CreateEvent(ctx context.Context, caller auth.Identity, in CreateEventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	ListEvents(ctx context.Context, filter repository.EventFilter) ([]models.Event, error)
	AdjustCapacity(ctx context.Context, caller auth.Identity, eventID uint, in AdjustInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, caller auth.Identity, eventID uint) error
}

type eventService struct {
	Deps
}

func NewEventService(deps Deps) EventService {
	deps.setDefaults()
	return &eventService{Deps: deps}
}

func (s *eventService) CreateEvent(ctx context.Context, caller auth.Identity, in CreateEventInput) (*models.Event, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Location) == "" || in.Date.IsZero() {
		return nil, ErrInvalidEvent
	}
	if in.TotalSeats < 1 {
		return nil, ErrInvalidCapacity
	}
	if in.Price < 0 {
		return nil, ErrInvalidPrice
	}

	event := &models.Event{
		AdminID:        caller.ID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       strings.TrimSpace(in.Location),
		Date:           in.Date,
		Img:            in.Img,
		TotalSeats:     in.TotalSeats,
		AvailableSeats: in.TotalSeats,
		Price:          in.Price,
	}
	if err := s.Events.Create(ctx, event); err != nil {
		return nil, storageErr("create event", err)
	}

	entry := audit.NewEntry(audit.ActionEventCreated, caller.ID, event.ID)
	entry.TotalSeats = event.TotalSeats
	entry.AvailableSeats = event.AvailableSeats
	s.record(ctx, entry)

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.Events.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get event", notFoundAs(err, ErrEventNotFound))
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter repository.EventFilter) ([]models.Event, error) {
	events, err := s.Events.FindAll(ctx, filter)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	return events, nil
}

// AdjustCapacity changes an event's total seats without touching what is
// already booked: the free pool moves by exactly the capacity delta.
func (s *eventService) AdjustCapacity(ctx context.Context, caller auth.Identity, eventID uint, in AdjustInput) (*models.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.adjust_capacity",
		attribute.Int64("event.id", int64(eventID)),
		attribute.Int("event.total_seats", in.TotalSeats),
	)
	defer span.End()

	if !caller.IsAdmin() {
		telemetry.SetSpanError(span, ErrForbidden)
		return nil, ErrForbidden
	}
	if in.TotalSeats < 1 {
		telemetry.SetSpanError(span, ErrInvalidCapacity)
		return nil, ErrInvalidCapacity
	}
	if in.Price != nil && *in.Price < 0 {
		telemetry.SetSpanError(span, ErrInvalidPrice)
		return nil, ErrInvalidPrice
	}

	var updated *models.Event
	err := s.Store.WithinTx(ctx, func(tx repository.InventoryTx) error {
		event, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return notFoundAs(err, ErrEventNotFound)
		}

		booked := event.Booked()
		if in.TotalSeats < booked {
			return ErrCapacityBelowBooked
		}

		delta := in.TotalSeats - event.TotalSeats
		event.TotalSeats = in.TotalSeats
		event.AvailableSeats += delta
		applyEdits(event, in)

		if err := tx.UpdateEvent(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		err = storageErr("adjust capacity", err)
		telemetry.SetSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("event.available_seats", updated.AvailableSeats))
	s.Log.Info("event capacity adjusted",
		zap.Uint("event_id", updated.ID),
		zap.String("admin_id", caller.ID),
		zap.Int("total_seats", updated.TotalSeats),
		zap.Int("available_seats", updated.AvailableSeats),
	)

	s.notify(ctx, updated.SeatUpdate())

	entry := audit.NewEntry(audit.ActionCapacityAdjusted, caller.ID, updated.ID)
	entry.TotalSeats = updated.TotalSeats
	entry.AvailableSeats = updated.AvailableSeats
	s.record(ctx, entry)

	return updated, nil
}

func applyEdits(event *models.Event, in AdjustInput) {
	if in.Price != nil {
		event.Price = *in.Price
	}
	if in.Date != nil {
		event.Date = *in.Date
	}
	if v := strings.TrimSpace(in.Title); v != "" {
		event.Title = v
	}
	if v := strings.TrimSpace(in.Location); v != "" {
		event.Location = v
	}
	if in.Description != "" {
		event.Description = in.Description
	}
	if in.Img != "" {
		event.Img = in.Img
	}
}

// DeleteEvent removes an event nobody has booked. Bookings are permanent, so
// an event with any booking stays.
func (s *eventService) DeleteEvent(ctx context.Context, caller auth.Identity, eventID uint) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}

	err := s.Store.WithinTx(ctx, func(tx repository.InventoryTx) error {
		if _, err := tx.LockEvent(ctx, eventID); err != nil {
			return notFoundAs(err, ErrEventNotFound)
		}
		n, err := tx.CountBookings(ctx, eventID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrEventHasBookings
		}
		return tx.DeleteEvent(ctx, eventID)
	})
	if err != nil {
		return storageErr("delete event", err)
	}

	s.record(ctx, audit.NewEntry(audit.ActionEventDeleted, caller.ID, eventID))
	return nil
}
