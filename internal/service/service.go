package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/audit"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInsufficientSeats   = errors.New("not enough seats available")
	ErrPriceMismatch       = errors.New("total amount does not match price")
	ErrCapacityBelowBooked = errors.New("total seats cannot be less than seats already booked")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidContact      = errors.New("name and email are required")
	ErrInvalidCapacity     = errors.New("total seats must be at least 1")
	ErrInvalidPrice        = errors.New("price must not be negative")
	ErrInvalidEvent        = errors.New("title, location and date are required")
	ErrEventHasBookings    = errors.New("event has bookings and cannot be deleted")
	ErrForbidden           = errors.New("not allowed")
	ErrStorage             = errors.New("storage failure")
)

// How long post-commit side effects may run after the caller has gone away.
const afterCommitTimeout = 5 * time.Second

// SeatNotifier is the Change Notifier as the engines see it: the local hub,
// or a broker publisher that relays to every instance's hub.
type SeatNotifier interface {
	NotifySeats(ctx context.Context, update models.SeatUpdate) error
}

// Deps are the collaborators shared by the booking and event services.
type Deps struct {
	Store    repository.InventoryStore
	Events   repository.EventRepository
	Bookings repository.BookingRepository
	Notifier SeatNotifier
	Audit    audit.Sink
	Log      *zap.Logger
}

func (d *Deps) setDefaults() {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogSink(d.Log)
	}
}

// storageErr passes domain failures through and classifies anything else as
// a storage failure, keeping the cause in the chain.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{
		ErrEventNotFound, ErrBookingNotFound, ErrInsufficientSeats, ErrPriceMismatch,
		ErrCapacityBelowBooked, ErrEventHasBookings, ErrForbidden, ErrInvalidQuantity,
		ErrInvalidContact, ErrInvalidCapacity, ErrInvalidPrice, ErrInvalidEvent,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}

// afterCommit runs fn detached from the request's cancellation; the change it
// reports has already been committed.
func afterCommit(ctx context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
	defer cancel()
	fn(ctx)
}

func (d *Deps) notify(ctx context.Context, update models.SeatUpdate) {
	if d.Notifier == nil {
		return
	}
	afterCommit(ctx, func(ctx context.Context) {
		if err := d.Notifier.NotifySeats(ctx, update); err != nil {
			d.Log.Warn("seat update not delivered",
				zap.Uint("event_id", update.EventID),
				zap.Int("available_seats", update.AvailableSeats),
				zap.Int64("version", update.Version),
				zap.Error(err),
			)
		}
	})
}

func (d *Deps) record(ctx context.Context, entry audit.Entry) {
	afterCommit(ctx, func(ctx context.Context) {
		if err := d.Audit.Record(ctx, entry); err != nil {
			d.Log.Warn("audit entry not recorded",
				zap.String("action", string(entry.Action)),
				zap.String("audit_id", entry.ID),
				zap.Error(err),
			)
		}
	})
}
