package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewInventoryStore returns a Postgres-backed store. Row locks are taken with
// SELECT ... FOR UPDATE and bounded by lockTimeout (0 waits forever).
func NewInventoryStore(db *gorm.DB, lockTimeout time.Duration) InventoryStore {
	return &gormStore{db: db, lockTimeout: lockTimeout}
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(&gormTx{db: db, locked: make(map[uint]bool)})
	})
}

type gormTx struct {
	db     *gorm.DB
	locked map[uint]bool
}

func (t *gormTx) LockEvent(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event %d: %w", id, err)
	}
	t.locked[id] = true
	return &event, nil
}

func (t *gormTx) UpdateEvent(ctx context.Context, event *models.Event) error {
	if !t.locked[event.ID] {
		return ErrLockNotHeld
	}
	res := t.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"title":           event.Title,
			"description":     event.Description,
			"location":        event.Location,
			"date":            event.Date,
			"img":             event.Img,
			"total_seats":     event.TotalSeats,
			"available_seats": event.AvailableSeats,
			"price_cents":     event.Price,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update event %d: %w", event.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	event.Version++
	return nil
}

func (t *gormTx) DeleteEvent(ctx context.Context, id uint) error {
	if !t.locked[id] {
		return ErrLockNotHeld
	}
	if err := t.db.WithContext(ctx).Delete(&models.Event{}, id).Error; err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

func (t *gormTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if !t.locked[booking.EventID] {
		return ErrLockNotHeld
	}
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error; err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (t *gormTx) CountBookings(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := t.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}
