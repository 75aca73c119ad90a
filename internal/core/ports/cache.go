package ports

import (
	"context"
	"time"
)

// Cache is the shared byte store behind the permission repository decorator.
// A failing Cache must never fail a profile lookup; callers fall through to the primary store.
type Cache interface {
	// Get returns the stored bytes; ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value; ttl <= 0 keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}
