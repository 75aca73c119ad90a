package services

import "github.com/avatarctic/tabrefresh/internal/core/ports"

// nopMetrics is used when no metrics recorder is wired.
type nopMetrics struct{}

func (nopMetrics) CacheLookup(string, string) {}
func (nopMetrics) CacheEvicted(string, int) {}
func (nopMetrics) DiffDecision(bool) {}
func (nopMetrics) TaskSubmitted(string) {}
func (nopMetrics) TaskFailed(string) {}
func (nopMetrics) TaskRejected(string) {}
func (nopMetrics) ScheduledSkipped(string) {}
func (nopMetrics) AnimationsAdvanced(int) {}
func (nopMetrics) RefreshCompleted(int, float64) {}

func metricsOrNop(m ports.EngineMetrics) ports.EngineMetrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
