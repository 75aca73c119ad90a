package ports

import (
	"context"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/google/uuid"
)

// PermissionProvider resolves the permission-derived profile of an identity.
// It is the loader behind the profile TTL cache.
type PermissionProvider interface {
	GetProfile(ctx context.Context, id uuid.UUID) (identity.Profile, error)
}

// PermissionRepository defines the interface for permission data operations
type PermissionRepository interface {
	PermissionProvider
	// AssignGroup sets the primary group and meta of an identity.
	AssignGroup(ctx context.Context, id uuid.UUID, group, prefix, suffix string) error
	// UpsertGroup creates or updates a group with its sort weight.
	UpsertGroup(ctx context.Context, group string, weight int) error
}

// ProfileInvalidator drops shared copies of a profile after a change notification.
type ProfileInvalidator interface {
	Forget(ctx context.Context, id uuid.UUID) error
}
