package ports

import (
	"context"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain/cache"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/core/domain/task"
	"github.com/google/uuid"
)

// ProfileCache is the TTL cache of permission-derived profiles.
type ProfileCache interface {
	Get(ctx context.Context, id uuid.UUID) identity.Profile
	Lookup(ctx context.Context, id uuid.UUID) cache.Result[identity.Profile]
	Peek(id uuid.UUID) cache.Result[identity.Profile]
	Refresh(ctx context.Context, id uuid.UUID) identity.Profile
	Invalidate(id uuid.UUID)
	InvalidateAll()
	CleanupExpired() int
	Size() int
}

// DiffCache suppresses re-application of unchanged presentation state.
type DiffCache interface {
	ShouldApply(id uuid.UUID, state presentation.Snapshot) bool
	ShouldApplyField(id uuid.UUID, field presentation.Field, value string) bool
	UpdateField(id uuid.UUID, field presentation.Field, value string)
	Snapshot(id uuid.UUID) (presentation.Snapshot, bool)
	Remove(id uuid.UUID)
	Clear()
	Size() int
}

// TaskScheduler dispatches background work and hands results back to the host.
type TaskScheduler interface {
	Initialize()
	Submit(fn task.Func) *task.Handle
	TrySubmit(fn task.Func) *task.Handle
	SubmitNamed(name string, fn task.Func) *task.Handle
	ScheduleOnce(name string, fn task.Func, delay time.Duration) *task.Handle
	ScheduleRepeating(name string, fn task.Func, initialDelay, period time.Duration) *task.Handle
	Cancel(name string) bool
	RunOnMainContext(fn func()) bool
	RunOnMainContextAfter(ticks int64, fn func()) bool
	Shutdown()
	ForceShutdown()

	State() task.State
	IsShutdown() bool
	HasRunningTasks() bool
	TrackedTasks() []task.Info
}

// RefreshService is the update pipeline composing the caches, the animation engine and the scheduler.
type RefreshService interface {
	Start(ctx context.Context) error
	Stop()
	Tick(ctx context.Context)
	RefreshAll(ctx context.Context) int
	RefreshClient(ctx context.Context, id uuid.UUID) bool
	HandleConnect(ctx context.Context, client identity.Client)
	HandleDisconnect(id uuid.UUID)
	HandlePermissionChange(ctx context.Context, id uuid.UUID)
	ReloadAnimations(ctx context.Context) (AnimationReport, error)
}

// AnimationReport is returned by an animation reload together with validation problems.
type AnimationReport struct {
	Loaded   []string `json:"loaded"`
	Skipped  []string `json:"skipped"`
	Warnings []string `json:"warnings"`
	Problems []string `json:"problems"`
}
