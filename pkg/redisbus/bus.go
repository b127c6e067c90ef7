// Package redisbus carries messages between instances over Redis pub/sub.
package redisbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
	MaxRetries    int
	RetryInterval time.Duration
}

type Bus struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// New connects, retrying the initial ping.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(cfg.RetryInterval)
		}
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return &Bus{client: client, prefix: cfg.ChannelPrefix, log: log}, nil
		}
	}

	client.Close()
	return nil, fmt.Errorf("connect to redis after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func (b *Bus) Publish(ctx context.Context, key string, body []byte) error {
	if err := b.client.Publish(ctx, b.prefix+key, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", key, err)
	}
	return nil
}

// Listen subscribes to every channel matching pattern and hands each payload
// to handle until ctx is cancelled. A handler error is logged and the
// message dropped.
func (b *Bus) Listen(ctx context.Context, pattern string, handle func(payload []byte) error) error {
	ps := b.client.PSubscribe(ctx, b.prefix+pattern)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe %s: %w", pattern, err)
	}
	b.log.Info("listening on redis", zap.String("pattern", b.prefix+pattern))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handle([]byte(msg.Payload)); err != nil {
				b.log.Warn("dropping redis message", zap.String("channel", msg.Channel), zap.Error(err))
			}
		}
	}
}

func (b *Bus) Close() error {
	return b.client.Close()
}
