package ports

// EngineMetrics records engine-level counters. Implementations must be safe for concurrent use.
type EngineMetrics interface {
	CacheLookup(cacheName, outcome string)
	CacheEvicted(cacheName string, count int)
	DiffDecision(applied bool)
	TaskSubmitted(kind string)
	TaskFailed(kind string)
	TaskRejected(kind string)
	ScheduledSkipped(name string)
	AnimationsAdvanced(count int)
	RefreshCompleted(clients int, seconds float64)
}
