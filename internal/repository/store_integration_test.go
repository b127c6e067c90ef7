//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/Eursukkul/event-ticketing/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "event_ticketing_test"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	// Drop and recreate tables for clean state
	testDB.Exec("DROP TABLE IF EXISTS bookings")
	testDB.Exec("DROP TABLE IF EXISTS events")
	if err := database.Migrate(testDB); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	code := m.Run()

	testDB.Exec("DROP TABLE IF EXISTS bookings")
	testDB.Exec("DROP TABLE IF EXISTS events")
	os.Exit(code)
}

func cleanTables() {
	testDB.Exec("DELETE FROM bookings")
	testDB.Exec("DELETE FROM events")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func createTestEvent(t *testing.T, total int, price models.Money) *models.Event {
	t.Helper()
	event := &models.Event{
		Title:          "Golang Workshop Bangkok",
		Location:       "Bangkok",
		Date:           time.Now().Add(24 * time.Hour),
		TotalSeats:     total,
		AvailableSeats: total,
		Price:          price,
	}
	require.NoError(t, repository.NewEventRepository(testDB).Create(context.Background(), event))
	return event
}

func newServices(lockTimeout time.Duration) (service.BookingService, service.EventService) {
	deps := service.Deps{
		Store:    repository.NewInventoryStore(testDB, lockTimeout),
		Events:   repository.NewEventRepository(testDB),
		Bookings: repository.NewBookingRepository(testDB),
	}
	return service.NewBookingService(deps), service.NewEventService(deps)
}

func assertConserved(t *testing.T, eventID uint) {
	t.Helper()
	ev, err := repository.NewEventRepository(testDB).FindByID(context.Background(), eventID)
	require.NoError(t, err)
	booked, err := repository.NewBookingRepository(testDB).SumQuantity(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, ev.TotalSeats, ev.AvailableSeats+booked)
}

// 60 users race for 50 seats: exactly 50 succeed.
func TestConcurrentReserve_NoOversell(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 50, 250000)
	bookings, _ := newServices(5 * time.Second)

	const users = 60
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok           int
		insufficient int
	)
	wg.Add(users)
	for i := 0; i < users; i++ {
		go func(i int) {
			defer wg.Done()
			caller := auth.Identity{ID: fmt.Sprintf("user-%03d", i), Role: auth.RoleUser}
			_, err := bookings.Reserve(context.Background(), caller, service.ReserveInput{
				EventID:     event.ID,
				Quantity:    1,
				TotalAmount: 250000,
				Name:        caller.ID,
				Email:       caller.ID + "@example.com",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrInsufficientSeats):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, ok)
	assert.Equal(t, 10, insufficient)
	assertConserved(t, event.ID)
}

func TestConcurrentReserveAndAdjust(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 20, 100)
	bookings, events := newServices(5 * time.Second)
	admin := auth.Identity{ID: "admin", Role: auth.RoleAdmin}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = bookings.Reserve(context.Background(), auth.Identity{ID: "u", Role: auth.RoleUser}, service.ReserveInput{
				EventID: event.ID, Quantity: 1, TotalAmount: 100, Name: "u", Email: "u@example.com",
			})
		}()
	}
	for _, total := range []int{10, 40, 25} {
		wg.Add(1)
		go func(total int) {
			defer wg.Done()
			_, _ = events.AdjustCapacity(context.Background(), admin, event.ID, service.AdjustInput{TotalSeats: total})
		}(total)
	}
	wg.Wait()

	assertConserved(t, event.ID)
}

func TestReserve_PriceMismatchLeavesRowUntouched(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 10, 10000)
	bookings, _ := newServices(time.Second)

	_, err := bookings.Reserve(context.Background(), auth.Identity{ID: "u1", Role: auth.RoleUser}, service.ReserveInput{
		EventID: event.ID, Quantity: 3, TotalAmount: 25000, Name: "u1", Email: "u1@example.com",
	})
	require.ErrorIs(t, err, service.ErrPriceMismatch)

	after, err := repository.NewEventRepository(testDB).FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.AvailableSeats)
	assert.Equal(t, int64(0), after.Version)
}

func TestLockTimeout_IsStorageFailure(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, 10, 100)
	store := repository.NewInventoryStore(testDB, 200*time.Millisecond)
	bookings, _ := newServices(200 * time.Millisecond)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.WithinTx(context.Background(), func(tx repository.InventoryTx) error {
			if _, err := tx.LockEvent(context.Background(), event.ID); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	_, err := bookings.Reserve(context.Background(), auth.Identity{ID: "u1", Role: auth.RoleUser}, service.ReserveInput{
		EventID: event.ID, Quantity: 1, TotalAmount: 100, Name: "u1", Email: "u1@example.com",
	})
	close(release)

	assert.ErrorIs(t, err, service.ErrStorage)
	assertConserved(t, event.ID)
}

func TestFindAll_Filters(t *testing.T) {
	cleanTables()
	repo := repository.NewEventRepository(testDB)
	day := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	for _, ev := range []*models.Event{
		{Title: "Jazz Night", Description: "live jazz", Location: "Chiang Mai", Date: day.AddDate(0, 0, 1), TotalSeats: 10, AvailableSeats: 10},
		{Title: "Go Meetup", Description: "gophers", Location: "Bangkok", Date: day, TotalSeats: 10, AvailableSeats: 10},
	} {
		require.NoError(t, repo.Create(context.Background(), ev))
	}

	found, err := repo.FindAll(context.Background(), repository.EventFilter{Search: "JAZZ", Location: "chiang"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Jazz Night", found[0].Title)

	found, err = repo.FindAll(context.Background(), repository.EventFilter{Date: &day})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Go Meetup", found[0].Title)
}
