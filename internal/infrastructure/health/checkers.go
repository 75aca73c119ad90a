package health

import (
	"context"
	"fmt"

	"github.com/avatarctic/tabrefresh/internal/core/domain/task"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	infraDB "github.com/avatarctic/tabrefresh/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
)

// dbHealthChecker wraps the permission database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// schedulerHealthChecker fails once the scheduler has left the active state.
type schedulerHealthChecker struct{ scheduler ports.TaskScheduler }

func (s *schedulerHealthChecker) Name() string { return "scheduler" }
func (s *schedulerHealthChecker) Check(ctx context.Context) error {
	if state := s.scheduler.State(); state != task.StateActive {
		return fmt.Errorf("scheduler is %s", state)
	}
	return nil
}

// hostHealthChecker fails when the authoritative context no longer accepts work.
type hostHealthChecker struct{ host ports.Host }

func (h *hostHealthChecker) Name() string { return "host" }
func (h *hostHealthChecker) Check(ctx context.Context) error {
	if !h.host.IsActive() {
		return fmt.Errorf("host is not active")
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewSchedulerHealthChecker creates a health checker for the task scheduler.
func NewSchedulerHealthChecker(scheduler ports.TaskScheduler) ports.HealthChecker {
	return &schedulerHealthChecker{scheduler: scheduler}
}

// NewHostHealthChecker creates a health checker for the host loop.
func NewHostHealthChecker(host ports.Host) ports.HealthChecker {
	return &hostHealthChecker{host: host}
}
