// Package memory is an embedded inventory store. Each event row is guarded by
// its own lock, held from LockEvent until the transaction ends, which gives
// the same single-row serializability SELECT ... FOR UPDATE gives Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
)

type Store struct {
	mu            sync.RWMutex
	events        map[uint]*models.Event
	bookings      map[uint]*models.Booking
	rows          map[uint]chan struct{}
	nextEventID   uint
	nextBookingID uint
}

var (
	_ repository.InventoryStore    = (*Store)(nil)
	_ repository.EventRepository   = (*Store)(nil)
	_ repository.BookingRepository = bookingView{}
)

func NewStore() *Store {
	return &Store{
		events:   make(map[uint]*models.Event),
		bookings: make(map[uint]*models.Booking),
		rows:     make(map[uint]chan struct{}),
	}
}

// rowLock returns the lock channel for an event, creating it on first use.
// Sending acquires the lock, receiving releases it.
func (s *Store) rowLock(id uint) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.rows[id] = l
	}
	return l
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.InventoryTx) error) error {
	t := &tx{
		store:   s,
		held:    make(map[uint]chan struct{}),
		pending: make(map[uint]*models.Event),
		deleted: make(map[uint]bool),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.commit()
	return nil
}

type tx struct {
	store    *Store
	held     map[uint]chan struct{}
	pending  map[uint]*models.Event
	deleted  map[uint]bool
	bookings []*models.Booking
}

func (t *tx) LockEvent(ctx context.Context, id uint) (*models.Event, error) {
	if _, ok := t.held[id]; ok {
		if t.deleted[id] {
			return nil, repository.ErrNotFound
		}
		ev := *t.pending[id]
		return &ev, nil
	}

	if _, err := t.store.FindByID(ctx, id); err != nil {
		return nil, err
	}

	l := t.store.rowLock(id)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("lock event %d: %w", id, ctx.Err())
	}
	t.held[id] = l

	// The row may have been deleted while we waited for the lock.
	current, err := t.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.pending[id] = current
	ev := *current
	return &ev, nil
}

func (t *tx) UpdateEvent(_ context.Context, event *models.Event) error {
	if _, ok := t.held[event.ID]; !ok {
		return repository.ErrLockNotHeld
	}
	if t.deleted[event.ID] {
		return repository.ErrNotFound
	}
	event.Version++
	event.UpdatedAt = time.Now()
	ev := *event
	t.pending[event.ID] = &ev
	return nil
}

func (t *tx) DeleteEvent(_ context.Context, id uint) error {
	if _, ok := t.held[id]; !ok {
		return repository.ErrLockNotHeld
	}
	t.deleted[id] = true
	return nil
}

func (t *tx) CreateBooking(_ context.Context, booking *models.Booking) error {
	if _, ok := t.held[booking.EventID]; !ok {
		return repository.ErrLockNotHeld
	}
	t.store.mu.Lock()
	t.store.nextBookingID++
	booking.ID = t.store.nextBookingID
	t.store.mu.Unlock()

	booking.CreatedAt = time.Now()
	b := *booking
	b.Event = nil
	t.bookings = append(t.bookings, &b)
	return nil
}

func (t *tx) CountBookings(_ context.Context, eventID uint) (int64, error) {
	committed, err := t.store.bookingsFor(eventID)
	if err != nil {
		return 0, err
	}
	n := int64(len(committed))
	for _, b := range t.bookings {
		if b.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (t *tx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ev := range t.pending {
		if t.deleted[id] {
			delete(s.events, id)
			continue
		}
		s.events[id] = ev
	}
	for _, b := range t.bookings {
		s.bookings[b.ID] = b
	}
}

func (t *tx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

func (s *Store) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	event.ID = s.nextEventID
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	ev := *event
	s.events[ev.ID] = &ev
	return nil
}

func (s *Store) FindByID(_ context.Context, id uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (s *Store) FindAll(_ context.Context, filter repository.EventFilter) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	location := strings.ToLower(filter.Location)
	var day time.Time
	if filter.Date != nil {
		day = filter.Date.UTC().Truncate(24 * time.Hour)
	}

	events := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		if location != "" && !strings.Contains(strings.ToLower(ev.Location), location) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(ev.Title), search) &&
			!strings.Contains(strings.ToLower(ev.Description), search) {
			continue
		}
		if filter.Date != nil {
			d := ev.Date.UTC()
			if d.Before(day) || !d.Before(day.AddDate(0, 0, 1)) {
				continue
			}
		}
		events = append(events, *ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// Bookings is the memory store's BookingRepository view. Booking and event
// lookups share the FindByID name, so the two read interfaces are split.
func (s *Store) Bookings() repository.BookingRepository {
	return bookingView{s}
}

type bookingView struct{ s *Store }

func (v bookingView) FindByID(_ context.Context, id uint) (*models.Booking, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	b, ok := v.s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (v bookingView) FindByEventID(_ context.Context, eventID uint) ([]models.Booking, error) {
	return v.s.bookingsFor(eventID)
}

func (v bookingView) FindByRequester(_ context.Context, requesterID string) ([]models.Booking, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.Booking
	for _, b := range v.s.bookings {
		if b.RequesterID != requesterID {
			continue
		}
		cp := *b
		if ev, ok := v.s.events[b.EventID]; ok {
			evCopy := *ev
			cp.Event = &evCopy
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (v bookingView) SumQuantity(_ context.Context, eventID uint) (int, error) {
	bookings, err := v.s.bookingsFor(eventID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, b := range bookings {
		total += b.Quantity
	}
	return total, nil
}

func (s *Store) bookingsFor(eventID uint) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.EventID == eventID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
