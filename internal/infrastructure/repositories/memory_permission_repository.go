package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/google/uuid"
)

type memoryAssignment struct {
	group  string
	prefix string
	suffix string
}

// MemoryPermissionRepository keeps permission data in process. It backs the engine when
// no database is configured.
type MemoryPermissionRepository struct {
	mu          sync.RWMutex
	groups      map[string]int
	assignments map[uuid.UUID]memoryAssignment
}

// NewMemoryPermissionRepository creates an empty in-memory repository
func NewMemoryPermissionRepository() *MemoryPermissionRepository {
	return &MemoryPermissionRepository{
		groups:      map[string]int{identity.DefaultGroup: 0},
		assignments: make(map[uuid.UUID]memoryAssignment),
	}
}

func (r *MemoryPermissionRepository) GetProfile(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assignments[id]
	if !ok {
		return identity.Profile{}, fmt.Errorf("identity %s: %w", id, domain.ErrProfileNotFound)
	}
	return identity.Profile{
		GroupName: a.group,
		Weight:    r.groups[a.group],
		Prefix:    a.prefix,
		Suffix:    a.suffix,
	}, nil
}

func (r *MemoryPermissionRepository) AssignGroup(ctx context.Context, id uuid.UUID, group, prefix, suffix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[group]; !ok {
		return fmt.Errorf("failed to assign group %s: unknown group", group)
	}
	r.assignments[id] = memoryAssignment{group: group, prefix: prefix, suffix: suffix}
	return nil
}

func (r *MemoryPermissionRepository) UpsertGroup(ctx context.Context, group string, weight int) error {
	r.mu.Lock()
	r.groups[group] = weight
	r.mu.Unlock()
	return nil
}
