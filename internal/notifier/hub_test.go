package notifier

import (
	"context"
	"sync"
	"testing"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToGroupOnly(t *testing.T) {
	hub := NewHub(4, nil)
	a := hub.Subscribe(1)
	b := hub.Subscribe(1)
	other := hub.Subscribe(2)
	defer a.Close()
	defer b.Close()
	defer other.Close()

	n := hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: 4, Version: 1})

	assert.Equal(t, 2, n)
	assert.Equal(t, models.SeatUpdate{EventID: 1, AvailableSeats: 4, Version: 1}, <-a.C)
	assert.Equal(t, 4, (<-b.C).AvailableSeats)
	assert.Len(t, other.C, 0)
}

func TestPublish_NoSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	assert.Equal(t, 0, hub.Publish(models.SeatUpdate{EventID: 9, AvailableSeats: 1, Version: 1}))
}

func TestPublish_DropsStaleVersions(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe(1)
	defer sub.Close()

	hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: 3, Version: 5})
	assert.Equal(t, 0, hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: 7, Version: 4}))
	assert.Equal(t, 0, hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: 3, Version: 5}))
	hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: 2, Version: 6})

	require.Len(t, sub.C, 2)
	assert.Equal(t, 3, (<-sub.C).AvailableSeats)
	assert.Equal(t, 2, (<-sub.C).AvailableSeats)
}

func TestPublish_PreservesOrderPerSubscriber(t *testing.T) {
	hub := NewHub(100, nil)
	sub := hub.Subscribe(1)
	defer sub.Close()

	for v := int64(1); v <= 50; v++ {
		hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: int(100 - v), Version: v})
	}

	prev := int64(0)
	for i := 0; i < 50; i++ {
		u := <-sub.C
		assert.Greater(t, u.Version, prev)
		prev = u.Version
	}
}

func TestPublish_FullBufferKeepsLatest(t *testing.T) {
	hub := NewHub(2, nil)
	sub := hub.Subscribe(1)
	defer sub.Close()

	for v := int64(1); v <= 5; v++ {
		hub.Publish(models.SeatUpdate{EventID: 1, AvailableSeats: int(10 - v), Version: v})
	}

	require.Len(t, sub.C, 2)
	<-sub.C
	assert.Equal(t, int64(5), (<-sub.C).Version)
}

func TestUnsubscribe_ClosesChannelAndRemovesGroup(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe(3)
	assert.Equal(t, 1, hub.Subscribers(3))

	sub.Close()
	sub.Close()

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers(3))
	assert.Equal(t, 0, hub.Publish(models.SeatUpdate{EventID: 3, Version: 1}))
}

func TestConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub(8, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(1)
			sub.Close()
		}()
		go func(v int64) {
			defer wg.Done()
			_ = hub.NotifySeats(context.Background(), models.SeatUpdate{EventID: 1, Version: v})
		}(int64(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers(1))
}

func TestClose_EndsEverySubscription(t *testing.T) {
	hub := NewHub(4, nil)
	a := hub.Subscribe(1)
	b := hub.Subscribe(2)

	hub.Close()

	_, ok := <-a.C
	assert.False(t, ok)
	_, ok = <-b.C
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(1))

	// Closing a subscription the hub already ended is a no-op.
	a.Close()
}
