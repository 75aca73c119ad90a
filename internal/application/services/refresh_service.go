package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain/cache"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	AnimationTickTask   = "animation_tick"
	CacheCleanupTask    = "system_cache_cleanup"
	AnimationReloadTask = "animation_reload"

	DefaultBatchSize         = 50
	DefaultInitialDelayTicks = 20
	DefaultRefreshInterval   = time.Second
	DefaultCleanupInterval   = time.Minute
)

// RefreshConfig holds configuration for the refresh pipeline
type RefreshConfig struct {
	BatchSize         int
	RefreshInterval   time.Duration
	CleanupInterval   time.Duration
	InitialDelayTicks int64
	Templates         Templates
}

// RefreshDeps groups the collaborators of the refresh service
type RefreshDeps struct {
	Profiles    ports.ProfileCache
	Diffs       ports.DiffCache
	Animations  ports.AnimationEngine
	Source      ports.AnimationSource
	Scheduler   ports.TaskScheduler
	Directory   ports.ClientDirectory
	Surface     ports.PresentationSurface
	Invalidator ports.ProfileInvalidator // optional
	Metrics     ports.EngineMetrics
	Logger      *logrus.Logger
}

type refreshService struct {
	cfg      RefreshConfig
	deps     RefreshDeps
	renderer *TemplateRenderer
	metrics  ports.EngineMetrics
	logger   *logrus.Logger

	loading sync.Map // uuid.UUID -> struct{}, profile reloads in flight
}

// NewRefreshService creates the update pipeline
func NewRefreshService(cfg RefreshConfig, deps RefreshDeps) ports.RefreshService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.InitialDelayTicks <= 0 {
		cfg.InitialDelayTicks = DefaultInitialDelayTicks
	}

	return &refreshService{
		cfg:      cfg,
		deps:     deps,
		renderer: NewTemplateRenderer(cfg.Templates),
		metrics:  metricsOrNop(deps.Metrics),
		logger:   deps.Logger,
	}
}

// Start loads the animations and registers the periodic tasks.
func (s *refreshService) Start(ctx context.Context) error {
	if _, err := s.ReloadAnimations(ctx); err != nil {
		return fmt.Errorf("failed to load animations: %w", err)
	}

	s.deps.Scheduler.Initialize()

	s.deps.Scheduler.ScheduleRepeating(AnimationTickTask, func(taskCtx context.Context) error {
		s.Tick(taskCtx)
		return nil
	}, s.cfg.RefreshInterval, s.cfg.RefreshInterval)

	s.deps.Scheduler.ScheduleRepeating(CacheCleanupTask, func(context.Context) error {
		s.deps.Scheduler.TrySubmit(func(context.Context) error {
			removed := s.deps.Profiles.CleanupExpired()
			if s.logger != nil && removed > 0 {
				s.logger.WithField("removed", removed).Debug("Profile cache cleaned up")
			}
			return nil
		})
		return nil
	}, s.cfg.CleanupInterval, s.cfg.CleanupInterval)

	refreshCtx := context.WithoutCancel(ctx)
	if !s.deps.Scheduler.RunOnMainContextAfter(s.cfg.InitialDelayTicks, func() {
		s.RefreshAll(refreshCtx)
	}) && s.logger != nil {
		s.logger.Warn("Initial refresh could not be scheduled")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"refresh_interval": s.cfg.RefreshInterval,
			"batch_size":       s.cfg.BatchSize,
			"animations":       s.deps.Animations.Count(),
		}).Info("Refresh service started")
	}
	return nil
}

// Stop cancels the periodic tasks and drops all cached state.
func (s *refreshService) Stop() {
	s.deps.Scheduler.Cancel(AnimationTickTask)
	s.deps.Scheduler.Cancel(CacheCleanupTask)
	s.deps.Diffs.Clear()
	s.deps.Profiles.InvalidateAll()
	s.loading.Clear()

	if s.logger != nil {
		s.logger.Info("Refresh service stopped")
	}
}

// Tick advances every animation and refreshes all clients. It runs on the main context.
func (s *refreshService) Tick(ctx context.Context) {
	s.deps.Animations.Advance()
	s.RefreshAll(ctx)
}

// RefreshAll refreshes connected clients in sequential batches and returns the number
// of fields applied.
func (s *refreshService) RefreshAll(ctx context.Context) int {
	clients := s.deps.Directory.Clients()
	if len(clients) == 0 {
		return 0
	}

	start := time.Now()
	applied := 0
	for i := 0; i < len(clients); i += s.cfg.BatchSize {
		end := min(i+s.cfg.BatchSize, len(clients))
		applied += s.refreshBatch(ctx, clients[i:end])
	}

	s.metrics.RefreshCompleted(len(clients), time.Since(start).Seconds())
	return applied
}

func (s *refreshService) refreshBatch(ctx context.Context, batch []identity.Client) int {
	applied := 0
	for _, client := range batch {
		applied += s.refreshSafely(ctx, client)
	}
	return applied
}

// RefreshClient queues a profile reload for one connected client. The client is
// refreshed on the main context once the reload lands.
func (s *refreshService) RefreshClient(ctx context.Context, id uuid.UUID) bool {
	if _, ok := s.deps.Directory.Client(id.String()); !ok {
		return false
	}
	s.reloadProfile(ctx, id)
	return true
}

// HandleConnect loads the profile of a newly connected client and gives it its first refresh.
func (s *refreshService) HandleConnect(ctx context.Context, client identity.Client) {
	s.reloadProfile(ctx, client.ID)
}

// HandleDisconnect drops every piece of state held for id. The drop runs on the main
// context so it cannot interleave with a refresh of the same client.
func (s *refreshService) HandleDisconnect(id uuid.UUID) {
	drop := func() {
		s.deps.Diffs.Remove(id)
		s.deps.Profiles.Invalidate(id)
	}
	if !s.deps.Scheduler.RunOnMainContext(drop) {
		drop()
	}
}

// HandlePermissionChange recomputes the profile off the main context, then refreshes the
// client on it.
func (s *refreshService) HandlePermissionChange(ctx context.Context, id uuid.UUID) {
	s.deps.Scheduler.SubmitNamed("permission_refresh_"+id.String(), func(taskCtx context.Context) error {
		if s.deps.Invalidator != nil {
			if err := s.deps.Invalidator.Forget(taskCtx, id); err != nil && s.logger != nil {
				s.logger.WithField("identity", id).WithError(err).Warn("Failed to drop shared profile copy")
			}
		}
		s.deps.Profiles.Refresh(taskCtx, id)
		s.applyOnMain(context.WithoutCancel(ctx), id)
		return nil
	})
}

// reloadProfile recomputes the profile of id on a worker, then refreshes the client on the
// main context. At most one reload per identity is in flight.
func (s *refreshService) reloadProfile(ctx context.Context, id uuid.UUID) {
	if _, busy := s.loading.LoadOrStore(id, struct{}{}); busy {
		return
	}

	mainCtx := context.WithoutCancel(ctx)
	h := s.deps.Scheduler.TrySubmit(func(taskCtx context.Context) error {
		defer s.loading.Delete(id)
		s.deps.Profiles.Refresh(taskCtx, id)
		s.applyOnMain(mainCtx, id)
		return nil
	})
	if h.IsDone() && h.Err() != nil {
		s.loading.Delete(id)
	}
}

func (s *refreshService) applyOnMain(ctx context.Context, id uuid.UUID) {
	s.deps.Scheduler.RunOnMainContext(func() {
		if client, ok := s.deps.Directory.Client(id.String()); ok {
			s.refreshSafely(ctx, client)
		}
	})
}

// cachedProfile serves the profile without calling the provider. A miss or a stale entry
// queues a reload; on a miss the client is left alone until that reload lands.
func (s *refreshService) cachedProfile(ctx context.Context, id uuid.UUID) (identity.Profile, bool) {
	cached := s.deps.Profiles.Peek(id)
	if cached.Outcome != cache.OutcomeHit {
		s.reloadProfile(ctx, id)
	}
	if cached.IsMiss() {
		return identity.Profile{}, false
	}
	return cached.Value, true
}

// ReloadAnimations replaces the animation definitions from the source.
func (s *refreshService) ReloadAnimations(ctx context.Context) (ports.AnimationReport, error) {
	defs, err := s.deps.Source.Load(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("Failed to read animation definitions")
		}
		return ports.AnimationReport{}, fmt.Errorf("failed to read animation definitions: %w", err)
	}

	loaded := s.deps.Animations.Load(defs)
	problems := s.deps.Animations.Validate()
	if s.logger != nil {
		for _, p := range problems {
			s.logger.WithField("component", "animations").Warn(p)
		}
	}

	return ports.AnimationReport{
		Loaded:   loaded.Loaded,
		Skipped:  loaded.Skipped,
		Warnings: loaded.Warnings,
		Problems: problems,
	}, nil
}

// refreshSafely keeps one failing client from aborting the batch.
func (s *refreshService) refreshSafely(ctx context.Context, client identity.Client) int {
	applied := 0
	err := utils.RunSafely("refresh client", func() error {
		applied = s.refresh(ctx, client)
		return nil
	})
	if err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"client": client.Name,
			"id":     client.ID,
		}).WithError(err).Error("Failed to refresh client")
	}
	return applied
}

func (s *refreshService) refresh(ctx context.Context, client identity.Client) int {
	profile, ok := s.cachedProfile(ctx, client.ID)
	if !ok {
		return 0
	}
	rendered := s.renderer.Render(client, profile)
	next := presentation.Snapshot{
		DisplayName: s.deps.Animations.Resolve(rendered.DisplayName),
		Header:      s.deps.Animations.Resolve(rendered.Header),
		Footer:      s.deps.Animations.Resolve(rendered.Footer),
		GroupKey:    rendered.GroupKey,
	}

	prev, hadPrev := s.deps.Diffs.Snapshot(client.ID)
	if !s.deps.Diffs.ShouldApply(client.ID, next) {
		return 0
	}

	applied := 0
	for _, field := range presentation.Fields() {
		value := next.Get(field)
		if hadPrev && prev.Get(field) == value {
			continue
		}
		if err := s.deps.Surface.Apply(ctx, client, field, value); err != nil {
			// Restore the previous value so the field is retried next refresh.
			s.deps.Diffs.UpdateField(client.ID, field, prev.Get(field))
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{
					"client": client.Name,
					"field":  field,
				}).WithError(err).Warn("Failed to apply presentation field")
			}
			continue
		}
		applied++
	}
	return applied
}
