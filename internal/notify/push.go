package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"counseldesk/internal/config"
	"counseldesk/internal/types"
)

// RedisPublisher implements Publisher over Redis pub/sub. Each user has a
// channel named "<prefix><userID>"; connected clients subscribe to their own
// channel and render events live. Pub/sub has no delivery confirmation, which
// matches the fire-and-forget contract.
//
// All publishes pass through a circuit breaker so a down Redis degrades to
// fast failures instead of stalling every dispatch on connection timeouts.
// The durable notification record is written regardless.
type RedisPublisher struct {
	client        redis.UniversalClient
	breaker       *gobreaker.CircuitBreaker[int64]
	channelPrefix string
	logger        *slog.Logger
}

// NewRedisPublisher connects a publisher to Redis using the push
// configuration. The connection itself is lazy; failures surface per publish.
func NewRedisPublisher(cfg config.PushConfig, logger *slog.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.RedisURL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	return NewRedisPublisherWithClient(redis.NewClient(opts), cfg.ChannelPrefix, logger), nil
}

// NewRedisPublisherWithClient creates a publisher over a caller-provided
// client. Used by tests and by callers sharing one client across components.
func NewRedisPublisherWithClient(client redis.UniversalClient, channelPrefix string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if channelPrefix == "" {
		channelPrefix = "user:"
	}

	cb := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "redis-push",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &RedisPublisher{
		client:        client,
		breaker:       cb,
		channelPrefix: channelPrefix,
		logger:        logger,
	}
}

// Publish serializes the event and publishes it on the recipient's channel.
// Zero subscribers is a success: the recipient is simply offline.
func (p *RedisPublisher) Publish(ctx context.Context, userID string, event types.PushEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling push event: %w", err)
	}

	channel := p.channelPrefix + userID

	_, err = p.breaker.Execute(func() (int64, error) {
		return p.client.Publish(ctx, channel, payload).Result()
	})
	if err != nil {
		return types.NewAppError(types.ErrCodePushUnavailable, "failed to publish push event", err)
	}

	return nil
}

// Ping reports Redis connectivity for health probes.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the underlying client connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
