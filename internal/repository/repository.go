package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
)

// ErrNotFound is returned by every implementation when a row does not exist,
// so callers never depend on a driver-specific sentinel.
var ErrNotFound = errors.New("record not found")

// ErrLockNotHeld is returned when a write targets an event row the
// transaction has not locked with LockEvent.
var ErrLockNotHeld = errors.New("event row is not locked by this transaction")

type EventFilter struct {
	Search   string
	Location string
	Date     *time.Time
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindAll(ctx context.Context, filter EventFilter) ([]models.Event, error)
}

type BookingRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByEventID(ctx context.Context, eventID uint) ([]models.Booking, error)
	FindByRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
	SumQuantity(ctx context.Context, eventID uint) (int, error)
}

// InventoryStore opens the exclusive transactional scope the reservation and
// adjustment engines run in. fn's error rolls the transaction back; a nil
// return commits it. Row locks taken inside fn are released on every exit
// path, including panics.
type InventoryStore interface {
	WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error
}

// InventoryTx is the per-transaction view of the event inventory.
type InventoryTx interface {
	// LockEvent reads the event row and holds an exclusive lock on it until
	// the transaction ends.
	LockEvent(ctx context.Context, id uint) (*models.Event, error)
	// UpdateEvent writes every mutable column of a locked event and bumps
	// its version. event.Version is updated in place.
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id uint) error
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CountBookings(ctx context.Context, eventID uint) (int64, error)
}
