package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ChangeHandler receives the identity whose permission data changed.
type ChangeHandler func(ctx context.Context, id uuid.UUID)

// ChangeListener turns permission change notifications published on a Redis channel into
// handler calls. Payloads are identity UUIDs.
type ChangeListener struct {
	client  *redis.Client
	channel string
	handler ChangeHandler
	logger  *logrus.Logger
}

// NewChangeListener creates a listener for channel
func NewChangeListener(client *redis.Client, channel string, handler ChangeHandler, logger *logrus.Logger) *ChangeListener {
	return &ChangeListener{client: client, channel: channel, handler: handler, logger: logger}
}

// Run subscribes and dispatches notifications until ctx is done.
func (l *ChangeListener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", l.channel, err)
	}
	if l.logger != nil {
		l.logger.WithField("channel", l.channel).Info("Listening for permission changes")
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			l.dispatch(ctx, msg.Payload)
		}
	}
}

func (l *ChangeListener) dispatch(ctx context.Context, payload string) bool {
	id, err := uuid.Parse(strings.TrimSpace(payload))
	if err != nil {
		if l.logger != nil {
			l.logger.WithField("payload", payload).WithError(err).Warn("Ignoring malformed permission change")
		}
		return false
	}
	if l.handler != nil {
		l.handler(ctx, id)
	}
	return true
}

// PublishChange announces a permission change for id on channel.
func PublishChange(ctx context.Context, client redis.Cmdable, channel string, id uuid.UUID) error {
	if err := client.Publish(ctx, channel, id.String()).Err(); err != nil {
		return fmt.Errorf("failed to publish permission change: %w", err)
	}
	return nil
}
