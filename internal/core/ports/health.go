package ports

import "context"

// HealthChecker checks one dependency of the engine for GET /health.
type HealthChecker interface {
	Name() string
	// Check returns nil when the dependency is usable within ctx.
	Check(ctx context.Context) error
}
