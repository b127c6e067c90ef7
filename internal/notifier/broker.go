package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Eursukkul/event-ticketing/internal/models"
)

// Publisher is a broker that fans a message out to every instance:
// *rabbitmq.Publisher or *redisbus.Bus.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// TopicPattern matches every key produced by Topic.
const TopicPattern = "seats.*"

func Topic(eventID uint) string {
	return fmt.Sprintf("seats.%d", eventID)
}

// BrokerNotifier sends seat updates through a broker instead of straight to
// the local hub. Each instance relays what it receives into its own hub.
type BrokerNotifier struct {
	pub Publisher
}

func NewBrokerNotifier(pub Publisher) *BrokerNotifier {
	return &BrokerNotifier{pub: pub}
}

func (b *BrokerNotifier) NotifySeats(ctx context.Context, update models.SeatUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal seat update: %w", err)
	}
	return b.pub.Publish(ctx, Topic(update.EventID), body)
}
