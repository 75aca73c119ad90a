package services

import (
	"sync"

	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/google/uuid"
)

// DiffCache remembers the last applied presentation snapshot per key.
type DiffCache[K comparable] struct {
	mu        sync.RWMutex
	snapshots map[K]presentation.Snapshot
	metrics   ports.EngineMetrics
}

// NewDiffCache creates an empty diff cache
func NewDiffCache[K comparable](metrics ports.EngineMetrics) *DiffCache[K] {
	return &DiffCache[K]{
		snapshots: make(map[K]presentation.Snapshot),
		metrics:   metricsOrNop(metrics),
	}
}

// NewPresentationDiffCache creates the diff cache keyed by client identity
func NewPresentationDiffCache(metrics ports.EngineMetrics) ports.DiffCache {
	return NewDiffCache[uuid.UUID](metrics)
}

// ShouldApply reports whether state differs from the stored snapshot and, if so, stores it.
// The compare and store happen under one lock, so a transition is reported exactly once.
func (d *DiffCache[K]) ShouldApply(key K, state presentation.Snapshot) bool {
	d.mu.Lock()
	prev, ok := d.snapshots[key]
	apply := !ok || prev != state
	if apply {
		d.snapshots[key] = state
	}
	d.mu.Unlock()

	d.metrics.DiffDecision(apply)
	return apply
}

// ShouldApplyField compares a single field without storing anything.
func (d *DiffCache[K]) ShouldApplyField(key K, field presentation.Field, value string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	prev, ok := d.snapshots[key]
	return !ok || prev.Get(field) != value
}

// UpdateField stores one field. Without a prior snapshot the other fields start empty.
func (d *DiffCache[K]) UpdateField(key K, field presentation.Field, value string) {
	d.mu.Lock()
	d.snapshots[key] = d.snapshots[key].With(field, value)
	d.mu.Unlock()
}

func (d *DiffCache[K]) Snapshot(key K) (presentation.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.snapshots[key]
	return s, ok
}

func (d *DiffCache[K]) Remove(key K) {
	d.mu.Lock()
	delete(d.snapshots, key)
	d.mu.Unlock()
}

func (d *DiffCache[K]) Clear() {
	d.mu.Lock()
	d.snapshots = make(map[K]presentation.Snapshot)
	d.mu.Unlock()
}

func (d *DiffCache[K]) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snapshots)
}
