package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemTaskPrefix marks scheduled tasks that fire even when no clients are connected.
const SystemTaskPrefix = "system_"

// IsSystemTask reports whether name is exempt from the connected-clients guard.
func IsSystemTask(name string) bool {
	return strings.HasPrefix(name, SystemTaskPrefix)
}

// Kind describes how a task handle was created.
type Kind string

const (
	KindAsync     Kind = "async"
	KindNamed     Kind = "named"
	KindOneShot   Kind = "one_shot"
	KindRepeating Kind = "repeating"
)

func (k Kind) IsScheduled() bool {
	return k == KindOneShot || k == KindRepeating
}

// State is the lifecycle state of the scheduler.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateActive        State = "active"
	StateShuttingDown  State = "shutting_down"
	StateShutdown      State = "shutdown"
)

// AdmissionPolicy decides what happens to a submission when the worker queue is at its limit.
type AdmissionPolicy string

const (
	AdmissionBlock      AdmissionPolicy = "block"
	AdmissionDropNewest AdmissionPolicy = "drop_newest"
)

func (p AdmissionPolicy) IsValid() bool {
	return p == AdmissionBlock || p == AdmissionDropNewest
}

// Info is a read-only view of a tracked task handle.
type Info struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Done      bool      `json:"done"`
}
