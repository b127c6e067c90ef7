package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Eursukkul/event-ticketing/internal/audit"
	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ReserveInput struct {
	EventID     uint
	Quantity    int
	TotalAmount models.Money
	Name        string
	Email       string
	Mobile      string
}

type Reservation struct {
	BookingID         uint
	NewAvailableSeats int
	Booking           *models.Booking
}

type BookingService interface {
	Reserve(ctx context.Context, caller auth.Identity, in ReserveInput) (*Reservation, error)
	GetBooking(ctx context.Context, caller auth.Identity, id uint) (*models.Booking, error)
	ListMyBookings(ctx context.Context, caller auth.Identity) ([]models.Booking, error)
	ListEventBookings(ctx context.Context, caller auth.Identity, eventID uint) ([]models.Booking, error)
}

type bookingService struct {
	Deps
}

func NewBookingService(deps Deps) BookingService {
	deps.setDefaults()
	return &bookingService{Deps: deps}
}

// Reserve books seats in one transaction holding the event's row lock:
// check availability, verify the claimed total, insert the booking and
// decrement the seats. The seat update goes out only after commit.
func (s *bookingService) Reserve(ctx context.Context, caller auth.Identity, in ReserveInput) (*Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.reserve",
		attribute.Int64("event.id", int64(in.EventID)),
		attribute.Int("booking.quantity", in.Quantity),
	)
	defer span.End()

	if in.Quantity <= 0 {
		telemetry.SetSpanError(span, ErrInvalidQuantity)
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		telemetry.SetSpanError(span, ErrInvalidContact)
		return nil, ErrInvalidContact
	}

	var (
		booking  *models.Booking
		update   models.SeatUpdate
		mismatch *audit.Entry
	)
	err := s.Store.WithinTx(ctx, func(tx repository.InventoryTx) error {
		// 1. Lock the event row, serializing concurrent reservations
		event, err := tx.LockEvent(ctx, in.EventID)
		if err != nil {
			return notFoundAs(err, ErrEventNotFound)
		}

		// 2. No partial fulfilment
		if event.AvailableSeats < in.Quantity {
			return ErrInsufficientSeats
		}

		// 3. The server's price is authoritative
		expected, ok := event.Price.Times(in.Quantity)
		if !ok || in.TotalAmount != expected {
			entry := audit.NewEntry(audit.ActionPriceMismatch, caller.ID, event.ID)
			entry.Quantity = in.Quantity
			entry.ClaimedTotal = in.TotalAmount
			entry.ExpectedTotal = expected
			entry.AvailableSeats = event.AvailableSeats
			mismatch = &entry
			return ErrPriceMismatch
		}

		// 4. Insert booking, then deduct
		b := &models.Booking{
			EventID:     event.ID,
			RequesterID: caller.ID,
			Name:        strings.TrimSpace(in.Name),
			Email:       strings.TrimSpace(in.Email),
			Mobile:      strings.TrimSpace(in.Mobile),
			Quantity:    in.Quantity,
			TotalAmount: expected,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}

		event.AvailableSeats -= in.Quantity
		if err := tx.UpdateEvent(ctx, event); err != nil {
			return err
		}

		booking = b
		update = event.SeatUpdate()
		return nil
	})

	if mismatch != nil {
		s.Log.Warn("price mismatch on reservation",
			zap.Uint("event_id", mismatch.EventID),
			zap.String("requester_id", caller.ID),
			zap.Int("quantity", mismatch.Quantity),
			zap.Stringer("claimed_total", mismatch.ClaimedTotal),
			zap.Stringer("expected_total", mismatch.ExpectedTotal),
		)
		s.record(ctx, *mismatch)
	}
	if err != nil {
		err = storageErr("reserve", err)
		telemetry.SetSpanError(span, err)
		if errors.Is(err, ErrStorage) {
			s.Log.Error("reservation failed", zap.Uint("event_id", in.EventID), zap.Error(err))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("booking.id", int64(booking.ID)),
		attribute.Int("event.available_seats", update.AvailableSeats),
	)

	s.notify(ctx, update)

	entry := audit.NewEntry(audit.ActionBookingCreated, caller.ID, booking.EventID)
	entry.BookingID = booking.ID
	entry.Quantity = booking.Quantity
	entry.ExpectedTotal = booking.TotalAmount
	entry.AvailableSeats = update.AvailableSeats
	s.record(ctx, entry)

	return &Reservation{
		BookingID:         booking.ID,
		NewAvailableSeats: update.AvailableSeats,
		Booking:           booking,
	}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, caller auth.Identity, id uint) (*models.Booking, error) {
	booking, err := s.Bookings.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get booking", notFoundAs(err, ErrBookingNotFound))
	}
	if booking.RequesterID != caller.ID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, caller auth.Identity) ([]models.Booking, error) {
	bookings, err := s.Bookings.FindByRequester(ctx, caller.ID)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) ListEventBookings(ctx context.Context, caller auth.Identity, eventID uint) ([]models.Booking, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.Events.FindByID(ctx, eventID); err != nil {
		return nil, storageErr("list event bookings", notFoundAs(err, ErrEventNotFound))
	}
	bookings, err := s.Bookings.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, storageErr("list event bookings", err)
	}
	return bookings, nil
}
