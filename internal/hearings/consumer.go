package hearings

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"counseldesk/internal/types"
)

// Lifecycle actions carried on the events channel.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LifecycleEvent is the envelope the practice-management core publishes when
// a hearing changes. Created and updated events carry the full hearing;
// deleted events carry only the ID.
type LifecycleEvent struct {
	Action    string         `json:"action"`
	Hearing   *types.Hearing `json:"hearing,omitempty"`
	HearingID string         `json:"hearing_id,omitempty"`
}

// Lifecycle is the orchestrator surface the consumer drives.
type Lifecycle interface {
	OnHearingCreated(ctx context.Context, h *types.Hearing) error
	OnHearingUpdated(ctx context.Context, h *types.Hearing) error
	OnHearingDeleted(ctx context.Context, hearingID string) error
}

// LifecycleConsumer subscribes to the hearing events channel and routes each
// event to the orchestrator. Handling is sequential per subscription; the
// heavy lifting (trigger execution) is already asynchronous via the job
// store, so lifecycle handling stays cheap.
//
// Malformed payloads and handler failures are logged and skipped. Pub/sub
// gives no redelivery; the core retries its own call path when an event
// matters.
type LifecycleConsumer struct {
	client  redis.UniversalClient
	channel string
	orch    Lifecycle
	logger  *slog.Logger
}

// NewLifecycleConsumer creates a consumer on the given channel.
func NewLifecycleConsumer(client redis.UniversalClient, channel string, orch Lifecycle, logger *slog.Logger) *LifecycleConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "hearings:events"
	}
	return &LifecycleConsumer{
		client:  client,
		channel: channel,
		orch:    orch,
		logger:  logger,
	}
}

// Run subscribes and processes events until the context is cancelled. The
// client reconnects dropped subscriptions on its own.
func (c *LifecycleConsumer) Run(ctx context.Context) error {
	sub := c.client.Subscribe(ctx, c.channel)
	defer sub.Close()

	c.logger.InfoContext(ctx, "lifecycle consumer subscribed", "channel", c.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.handle(ctx, msg.Payload)
		}
	}
}

// handle decodes and dispatches one event.
func (c *LifecycleConsumer) handle(ctx context.Context, payload string) {
	var event LifecycleEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.ErrorContext(ctx, "malformed lifecycle event", "error", err)
		return
	}

	var err error
	switch event.Action {
	case ActionCreated:
		err = c.orch.OnHearingCreated(ctx, event.Hearing)
	case ActionUpdated:
		err = c.orch.OnHearingUpdated(ctx, event.Hearing)
	case ActionDeleted:
		id := event.HearingID
		if id == "" && event.Hearing != nil {
			id = event.Hearing.ID
		}
		err = c.orch.OnHearingDeleted(ctx, id)
	default:
		c.logger.WarnContext(ctx, "unknown lifecycle action", "action", event.Action)
		return
	}

	if err != nil {
		c.logger.ErrorContext(ctx, "lifecycle event handling failed",
			"action", event.Action,
			"error", err,
		)
		return
	}

	c.logger.InfoContext(ctx, "lifecycle event handled", "action", event.Action)
}
