package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	impl "github.com/avatarctic/tabrefresh/internal/application/services"
	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	tmocks "github.com/avatarctic/tabrefresh/internal/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type refreshFixture struct {
	svc        ports.RefreshService
	scheduler  ports.TaskScheduler
	animations *impl.AnimationService
	diffs      ports.DiffCache
	surface    *tmocks.SurfaceMock
	directory  *tmocks.ClientDirectoryMock
	repo       *tmocks.PermissionRepositoryMock
	cache      ports.ProfileCache
	forgotten  *atomic.Int32

	mu       sync.Mutex
	profiles map[uuid.UUID]identity.Profile
}

func (f *refreshFixture) setProfile(id uuid.UUID, p identity.Profile) {
	f.mu.Lock()
	f.profiles[id] = p
	f.mu.Unlock()
}

// warm loads every connected client's profile so refreshes apply synchronously.
func (f *refreshFixture) warm() {
	for _, c := range f.directory.List {
		f.cache.Refresh(context.Background(), c.ID)
	}
}

func newRefreshFixture(t *testing.T, clients int) *refreshFixture {
	t.Helper()

	f := &refreshFixture{
		surface:   &tmocks.SurfaceMock{},
		directory: &tmocks.ClientDirectoryMock{},
		profiles:  make(map[uuid.UUID]identity.Profile),
		forgotten: &atomic.Int32{},
	}
	for i := 0; i < clients; i++ {
		c := identity.Client{ID: uuid.New(), Name: fmt.Sprintf("player%03d", i)}
		f.directory.List = append(f.directory.List, c)
		f.profiles[c.ID] = identity.Profile{GroupName: "member", Weight: 10, Prefix: "[M] "}
	}
	f.repo = &tmocks.PermissionRepositoryMock{GetProfileFn: func(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		p, ok := f.profiles[id]
		if !ok {
			return identity.Profile{}, errors.New("unknown identity")
		}
		return p, nil
	}}

	f.animations = impl.NewAnimationService(nil)
	f.diffs = impl.NewPresentationDiffCache(nil)
	host := &tmocks.HostMock{ConnectedClientsFn: func() int { return len(f.directory.List) }}
	f.scheduler = impl.NewSchedulerService(host, impl.SchedulerConfig{Workers: 2}, nil, nil)
	t.Cleanup(f.scheduler.ForceShutdown)

	source := &tmocks.AnimationSourceMock{LoadFn: func(ctx context.Context) (map[string]animation.RawDefinition, error) {
		return map[string]animation.RawDefinition{
			"dots":   {Frames: []string{".", "..", "..."}},
			"broken": {},
		}, nil
	}}

	f.cache = impl.NewProfileCache(f.repo, time.Minute, nil, nil)
	f.svc = impl.NewRefreshService(impl.RefreshConfig{
		Templates: impl.Templates{
			DisplayName: "{prefix}{name}",
			Header:      []string{"{animation:dots}"},
			Footer:      []string{"Group: {group}"},
		},
	}, impl.RefreshDeps{
		Profiles:   f.cache,
		Diffs:      f.diffs,
		Animations: f.animations,
		Source:     source,
		Scheduler:  f.scheduler,
		Directory:  f.directory,
		Surface:    f.surface,
		Invalidator: &tmocks.ProfileInvalidatorMock{ForgetFn: func(ctx context.Context, id uuid.UUID) error {
			f.forgotten.Add(1)
			return nil
		}},
	})

	_, err := f.svc.ReloadAnimations(context.Background())
	require.NoError(t, err)
	f.warm()
	return f
}

func TestRefreshAll_AppliesOnlyChangedFields(t *testing.T) {
	f := newRefreshFixture(t, 1)
	ctx := context.Background()
	client := f.directory.List[0]

	require.Equal(t, 4, f.svc.RefreshAll(ctx))
	applied := f.surface.Applied()
	require.Len(t, applied, 4)
	require.Equal(t, tmocks.AppliedField{ClientID: client.ID, Field: presentation.FieldDisplayName, Value: "[M] player000"}, applied[0])
	require.Equal(t, ".", applied[1].Value)
	require.Equal(t, "Group: member", applied[2].Value)
	require.Equal(t, impl.GroupKey(identity.Profile{GroupName: "member", Weight: 10}), applied[3].Value)

	f.surface.Reset()
	require.Zero(t, f.svc.RefreshAll(ctx))
	require.Empty(t, f.surface.Applied())

	f.svc.Tick(ctx)
	applied = f.surface.Applied()
	require.Len(t, applied, 1)
	require.Equal(t, presentation.FieldHeader, applied[0].Field)
	require.Equal(t, "..", applied[0].Value)
}

func TestRefreshAll_DoesNotWaitOnSlowProvider(t *testing.T) {
	f := newRefreshFixture(t, 10)
	f.cache.InvalidateAll()

	release := make(chan struct{})
	var calls atomic.Int32
	f.repo.GetProfileFn = func(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
		calls.Add(1)
		<-release
		return identity.Profile{GroupName: "member", Weight: 10}, nil
	}

	start := time.Now()
	require.Zero(t, f.svc.RefreshAll(context.Background()))
	require.Less(t, time.Since(start), 100*time.Millisecond)
	require.Empty(t, f.surface.Applied())

	// a second pass while the loads are pending queues nothing new
	require.Zero(t, f.svc.RefreshAll(context.Background()))

	close(release)
	require.Eventually(t, func() bool { return len(f.surface.Applied()) == 40 }, waitTimeout, 5*time.Millisecond)
	require.EqualValues(t, 10, calls.Load())
}

func TestRefreshAll_StaleProfileServedWhileReloading(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	f := newRefreshFixture(t, 1)
	client := f.directory.List[0]
	profiles := impl.NewTTLCache[uuid.UUID, identity.Profile](f.repo.GetProfile, impl.TTLCacheConfig[identity.Profile]{
		TTL:      time.Second,
		Fallback: identity.Fallback(),
		Clock:    clock,
	}, nil)
	profiles.Refresh(context.Background(), client.ID)

	svc := impl.NewRefreshService(impl.RefreshConfig{
		Templates: impl.Templates{DisplayName: "{prefix}{name}"},
	}, impl.RefreshDeps{
		Profiles:   profiles,
		Diffs:      impl.NewPresentationDiffCache(nil),
		Animations: f.animations,
		Scheduler:  f.scheduler,
		Directory:  f.directory,
		Surface:    f.surface,
	})
	require.Equal(t, 4, svc.RefreshAll(context.Background()))

	gate := make(chan struct{})
	f.repo.GetProfileFn = func(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
		<-gate
		return identity.Profile{GroupName: "vip", Weight: 50, Prefix: "[V] "}, nil
	}
	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	f.surface.Reset()

	// the stale profile renders unchanged, the reload lands on the main context
	require.Zero(t, svc.RefreshAll(context.Background()))
	close(gate)
	require.Eventually(t, func() bool {
		for _, a := range f.surface.Applied() {
			if a.Field == presentation.FieldDisplayName && a.Value == "[V] player000" {
				return true
			}
		}
		return false
	}, waitTimeout, 5*time.Millisecond)
}

func TestRefreshAll_ProcessesEveryBatch(t *testing.T) {
	f := newRefreshFixture(t, 120)

	require.Equal(t, 480, f.svc.RefreshAll(context.Background()))
	require.Len(t, f.surface.Applied(), 480)
	require.Equal(t, 120, f.diffs.Size())
}

func TestRefreshAll_FailedFieldIsRetried(t *testing.T) {
	f := newRefreshFixture(t, 1)
	ctx := context.Background()

	var failFooter atomic.Bool
	failFooter.Store(true)
	f.surface.ApplyFn = func(ctx context.Context, client identity.Client, field presentation.Field, value string) error {
		if field == presentation.FieldFooter && failFooter.Load() {
			return errors.New("surface unavailable")
		}
		return nil
	}

	require.Equal(t, 3, f.svc.RefreshAll(ctx))

	failFooter.Store(false)
	f.surface.Reset()
	require.Equal(t, 1, f.svc.RefreshAll(ctx))
	require.Equal(t, presentation.FieldFooter, f.surface.Applied()[0].Field)
}

func TestRefreshAll_PanickingClientDoesNotAbortBatch(t *testing.T) {
	f := newRefreshFixture(t, 3)
	bad := f.directory.List[1].ID
	f.surface.ApplyFn = func(ctx context.Context, client identity.Client, field presentation.Field, value string) error {
		if client.ID == bad {
			panic("surface exploded")
		}
		return nil
	}

	require.Equal(t, 8, f.svc.RefreshAll(context.Background()))
}

func TestRefreshAll_UnknownIdentityUsesFallbackProfile(t *testing.T) {
	f := newRefreshFixture(t, 0)
	stranger := identity.Client{ID: uuid.New(), Name: "stranger"}
	f.directory.List = append(f.directory.List, stranger)
	f.warm()

	f.svc.RefreshAll(context.Background())

	applied := f.surface.Applied()
	require.Len(t, applied, 4)
	require.Equal(t, "stranger", applied[0].Value)
	require.Equal(t, "Group: default", applied[2].Value)
}

func TestHandleDisconnect_DropsState(t *testing.T) {
	f := newRefreshFixture(t, 1)
	ctx := context.Background()
	id := f.directory.List[0].ID

	f.svc.RefreshAll(ctx)
	require.Equal(t, 1, f.diffs.Size())

	f.svc.HandleDisconnect(id)
	require.Equal(t, 0, f.diffs.Size())

	// the profile went with the client, so the next pass reloads it in the background
	f.surface.Reset()
	require.Zero(t, f.svc.RefreshAll(ctx))
	require.Eventually(t, func() bool { return len(f.surface.Applied()) == 4 }, waitTimeout, 5*time.Millisecond)
}

func TestHandleDisconnect_RunsOnMainContext(t *testing.T) {
	var (
		mu      sync.Mutex
		queued  []func()
		active  atomic.Bool
		clients = 1
	)
	active.Store(true)
	host := &tmocks.HostMock{
		IsActiveFn:         active.Load,
		ConnectedClientsFn: func() int { return clients },
		RunNowFn: func(fn func()) error {
			mu.Lock()
			queued = append(queued, fn)
			mu.Unlock()
			return nil
		},
	}
	scheduler := impl.NewSchedulerService(host, impl.SchedulerConfig{Workers: 1}, nil, nil)
	t.Cleanup(scheduler.ForceShutdown)

	id := uuid.New()
	diffs := impl.NewPresentationDiffCache(nil)
	diffs.ShouldApply(id, presentation.Snapshot{DisplayName: "x"})

	svc := impl.NewRefreshService(impl.RefreshConfig{}, impl.RefreshDeps{
		Profiles:   impl.NewProfileCache(&tmocks.PermissionRepositoryMock{}, time.Minute, nil, nil),
		Diffs:      diffs,
		Animations: impl.NewAnimationService(nil),
		Scheduler:  scheduler,
		Directory:  &tmocks.ClientDirectoryMock{},
		Surface:    &tmocks.SurfaceMock{},
	})

	svc.HandleDisconnect(id)
	require.Equal(t, 1, diffs.Size())

	mu.Lock()
	require.Len(t, queued, 1)
	drop := queued[0]
	mu.Unlock()
	drop()
	require.Equal(t, 0, diffs.Size())

	// an inactive host drops the state directly
	diffs.ShouldApply(id, presentation.Snapshot{DisplayName: "y"})
	active.Store(false)
	svc.HandleDisconnect(id)
	require.Equal(t, 0, diffs.Size())
}

func TestRefreshClient_ReloadsProfile(t *testing.T) {
	f := newRefreshFixture(t, 1)
	ctx := context.Background()
	client := f.directory.List[0]

	f.svc.RefreshAll(ctx)
	f.setProfile(client.ID, identity.Profile{GroupName: "admin", Weight: 100, Prefix: "[A] "})
	f.surface.Reset()

	require.True(t, f.svc.RefreshClient(ctx, client.ID))
	require.False(t, f.svc.RefreshClient(ctx, uuid.New()))

	require.Eventually(t, func() bool { return len(f.surface.Applied()) == 3 }, waitTimeout, 5*time.Millisecond)
	require.Equal(t, "[A] player000", f.surface.Applied()[0].Value)
}

func TestHandleConnect_LoadsProfileThenRefreshes(t *testing.T) {
	f := newRefreshFixture(t, 0)
	client := identity.Client{ID: uuid.New(), Name: "newcomer"}
	f.directory.List = append(f.directory.List, client)
	f.setProfile(client.ID, identity.Profile{GroupName: "member", Weight: 10, Prefix: "[M] "})

	f.svc.HandleConnect(context.Background(), client)

	require.Eventually(t, func() bool { return len(f.surface.Applied()) == 4 }, waitTimeout, 5*time.Millisecond)
	require.Equal(t, "[M] newcomer", f.surface.Applied()[0].Value)
}

func TestHandlePermissionChange_RefreshesInBackground(t *testing.T) {
	f := newRefreshFixture(t, 1)
	ctx := context.Background()
	client := f.directory.List[0]

	f.svc.RefreshAll(ctx)
	f.setProfile(client.ID, identity.Profile{GroupName: "vip", Weight: 50, Prefix: "[V] "})
	f.surface.Reset()

	f.svc.HandlePermissionChange(ctx, client.ID)

	require.Eventually(t, func() bool {
		for _, a := range f.surface.Applied() {
			if a.Field == presentation.FieldDisplayName && a.Value == "[V] player000" {
				return true
			}
		}
		return false
	}, waitTimeout, 5*time.Millisecond)
	require.EqualValues(t, 1, f.forgotten.Load())
}

func TestReloadAnimations_ReportsSkippedEntries(t *testing.T) {
	f := newRefreshFixture(t, 0)

	report, err := f.svc.ReloadAnimations(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"dots"}, report.Loaded)
	require.Equal(t, []string{"broken"}, report.Skipped)
	require.Len(t, report.Problems, 1)
	require.Contains(t, report.Problems[0], "broken")
}

func TestReloadAnimations_SourceFailure(t *testing.T) {
	svc := impl.NewRefreshService(impl.RefreshConfig{}, impl.RefreshDeps{
		Animations: impl.NewAnimationService(nil),
		Source: &tmocks.AnimationSourceMock{LoadFn: func(ctx context.Context) (map[string]animation.RawDefinition, error) {
			return nil, errors.New("disk on fire")
		}},
	})

	_, err := svc.ReloadAnimations(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk on fire")
}

func TestStartAndStop_ManagePeriodicTasks(t *testing.T) {
	f := newRefreshFixture(t, 2)
	ctx := context.Background()

	require.NoError(t, f.svc.Start(ctx))

	// the initial refresh ran through the host hand-off
	require.Len(t, f.surface.Applied(), 8)

	names := map[string]bool{}
	for _, info := range f.scheduler.TrackedTasks() {
		names[info.Name] = true
	}
	require.True(t, names[impl.AnimationTickTask])
	require.True(t, names[impl.CacheCleanupTask])

	f.svc.Stop()
	require.False(t, f.scheduler.HasRunningTasks())
	require.Equal(t, 0, f.diffs.Size())
}
