package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// PresentationMessage is the payload published for every applied field.
type PresentationMessage struct {
	ClientID uuid.UUID          `json:"client_id"`
	Client   string             `json:"client"`
	Field    presentation.Field `json:"field"`
	Value    string             `json:"value"`
}

// SnapshotPublisher fans applied presentation fields out on a Redis channel before handing
// them to the next surface.
type SnapshotPublisher struct {
	client  redis.Cmdable
	channel string
	next    ports.PresentationSurface
}

// NewSnapshotPublisher creates a publishing surface; next may be nil.
func NewSnapshotPublisher(client redis.Cmdable, channel string, next ports.PresentationSurface) *SnapshotPublisher {
	return &SnapshotPublisher{client: client, channel: channel, next: next}
}

func (p *SnapshotPublisher) Apply(ctx context.Context, client identity.Client, field presentation.Field, value string) error {
	if p.next != nil {
		if err := p.next.Apply(ctx, client, field, value); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(PresentationMessage{
		ClientID: client.ID,
		Client:   client.Name,
		Field:    field,
		Value:    value,
	})
	if err != nil {
		return fmt.Errorf("failed to encode presentation update: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish presentation update: %w", err)
	}
	return nil
}
