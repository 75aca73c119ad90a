package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Func is a unit of background work. The context is cancelled when the task is cancelled
// with interruption or the scheduler is force-terminated.
type Func func(ctx context.Context) error

// Handle tracks one submitted or scheduled task.
type Handle struct {
	id        uuid.UUID
	name      string
	kind      Kind
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	stopped  chan struct{}
	stopOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
	err      error
}

// NewHandle creates a handle whose context derives from parent.
func NewHandle(parent context.Context, name string, kind Kind, createdAt time.Time) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		id:        uuid.New(),
		name:      name,
		kind:      kind,
		createdAt: createdAt,
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (h *Handle) ID() uuid.UUID            { return h.id }
func (h *Handle) Name() string             { return h.name }
func (h *Handle) Kind() Kind               { return h.kind }
func (h *Handle) Context() context.Context { return h.ctx }
func (h *Handle) Done() <-chan struct{}    { return h.done }
func (h *Handle) Stopped() <-chan struct{} { return h.stopped }
func (h *Handle) CreatedAt() time.Time     { return h.createdAt }

// IsDone reports whether the handle has completed or been cancelled.
func (h *Handle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// IsStopped reports whether further firings have been cancelled.
func (h *Handle) IsStopped() bool {
	select {
	case <-h.stopped:
		return true
	default:
		return false
	}
}

// Err returns the completion error, nil while running or after success.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the handle completes or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish completes the handle with err. Only the first call has an effect; it reports
// whether this call completed the handle.
func (h *Handle) Finish(err error) bool {
	finished := false
	h.doneOnce.Do(func() {
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		finished = true
		h.stopOnce.Do(func() { close(h.stopped) })
		close(h.done)
	})
	return finished
}

// Cancel stops future firings and completes the handle with reason. With interrupt, the
// task context is cancelled as well so a running body can observe it. It reports whether
// the handle was still pending.
func (h *Handle) Cancel(interrupt bool, reason error) bool {
	if h.IsDone() {
		return false
	}
	h.stopOnce.Do(func() { close(h.stopped) })
	if interrupt {
		h.cancel()
	}
	return h.Finish(reason)
}

// Release cancels the task context once no body can still be using it.
func (h *Handle) Release() {
	h.cancel()
}

// Info returns a detached view of the handle.
func (h *Handle) Info() Info {
	return Info{
		ID:        h.id,
		Name:      h.name,
		Kind:      h.kind,
		CreatedAt: h.createdAt,
		Done:      h.IsDone(),
	}
}
